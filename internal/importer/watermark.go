package importer

import (
	"context"
	"time"
)

// nextHour returns the instant at the start of the next whole UTC hour
// strictly after t.
func nextHour(t time.Time) time.Time {
	t = t.UTC()
	truncated := t.Truncate(time.Hour)
	if truncated.Equal(t) {
		return truncated.Add(time.Hour)
	}
	return truncated.Add(time.Hour)
}

// watermarkSource is the read the resolver needs from the catalog.
type watermarkSource interface {
	LatestImportedModifiedDate(ctx context.Context) (*time.Time, error)
}

// resolveCursor decides the modified_after cursor for the next cycle (§4.1).
func resolveCursor(ctx context.Context, store watermarkSource, userAfter *time.Time) (*time.Time, error) {
	lastImported, err := store.LatestImportedModifiedDate(ctx)
	if err != nil {
		return nil, err
	}

	if lastImported == nil {
		return userAfter, nil
	}

	next := nextHour(*lastImported)
	if userAfter != nil && userAfter.After(next) {
		return userAfter, nil
	}
	return &next, nil
}
