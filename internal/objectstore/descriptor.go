// Package objectstore lists and fetches collection-file artifacts from the
// external object store (a Google Drive folder).
package objectstore

import (
	"context"
	"time"
)

// SourceDescriptor is the metadata record the object store returns for one
// artifact, plus a handle to fetch its content.
type SourceDescriptor struct {
	ID           string
	Name         string
	Size         int64
	ModifiedDate time.Time

	fetch func(ctx context.Context) ([]byte, error)
}

// FetchContent retrieves the artifact's bytes. It may return a
// *TransientRemoteError or *NotDownloadableError, both of which the download
// worker (§4.4) retries up to its attempt cap before giving up.
func (d SourceDescriptor) FetchContent(ctx context.Context) ([]byte, error) {
	return d.fetch(ctx)
}

// Lister yields artifact descriptors filtered by modified-time, strictly
// bounded (`>`, `<`) and fully materialized (§4.2).
type Lister interface {
	ListByModifiedDate(ctx context.Context, after, before *time.Time) ([]SourceDescriptor, error)
}
