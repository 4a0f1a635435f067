package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// DriveScope is the OAuth2 scope the importer needs: read-only access to
// file metadata and content.
const DriveScope = drive.DriveReadonlyScope

const driveListFields = "nextPageToken, files(id, name, size, modifiedTime)"

// DriveLister lists and fetches artifacts from a single Google Drive folder.
type DriveLister struct {
	svc      *drive.Service
	folderID string
}

// NewDriveLister adapts a Drive API client to the Lister contract (§4.2),
// scoped to one folder.
func NewDriveLister(svc *drive.Service, folderID string) *DriveLister {
	return &DriveLister{svc: svc, folderID: folderID}
}

// ListByModifiedDate implements Lister. Filter semantics are strict (`>`,
// `<`), matching the upstream Drive query operators, and the full result
// set is paginated and materialized before returning.
func (l *DriveLister) ListByModifiedDate(ctx context.Context, after, before *time.Time) ([]SourceDescriptor, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", l.folderID)
	if after != nil {
		q += fmt.Sprintf(" and modifiedTime > '%s'", after.UTC().Format(time.RFC3339))
	}
	if before != nil {
		q += fmt.Sprintf(" and modifiedTime < '%s'", before.UTC().Format(time.RFC3339))
	}

	var out []SourceDescriptor
	pageToken := ""
	for {
		call := l.svc.Files.List().Context(ctx).Q(q).Fields(driveListFields).PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, classifyListError(err)
		}

		for _, f := range res.Files {
			modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
			if err != nil {
				return nil, fmt.Errorf("parsing modifiedTime for %s: %w", f.Name, err)
			}
			fileID := f.Id
			out = append(out, SourceDescriptor{
				ID:           fileID,
				Name:         f.Name,
				Size:         f.Size,
				ModifiedDate: modified.UTC(),
				fetch: func(ctx context.Context) ([]byte, error) {
					return l.fetchContent(ctx, fileID)
				},
			})
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	return out, nil
}

func (l *DriveLister) fetchContent(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := l.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, classifyFetchError(fileID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientRemoteError{FileID: fileID, Err: err}
	}
	return body, nil
}

func classifyListError(err error) error {
	if isTransientGoogleAPIError(err) {
		return &TransientRemoteError{Err: err}
	}
	return err
}

func classifyFetchError(fileID string, err error) error {
	if isTransientGoogleAPIError(err) {
		return &TransientRemoteError{FileID: fileID, Err: err}
	}
	if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == http.StatusNotFound {
		return &NotDownloadableError{FileID: fileID, Err: err}
	}
	return &NotDownloadableError{FileID: fileID, Err: err}
}

func isTransientGoogleAPIError(err error) bool {
	apiErr, ok := err.(*googleapi.Error)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
