package importer

import (
	"context"
	"errors"
	"time"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/catalog"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/ingestclient"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/objectstore"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/pool"
)

// LoopConfig holds everything one import cycle needs, independent of how it
// arrived (CLI flags, tests, etc).
type LoopConfig struct {
	Lister              objectstore.Lister
	Store               *catalog.Store
	Client              *ingestclient.Client
	TargetDir           string
	DownloadConcurrency int
	DownloadTimeout     time.Duration
	KeepLocalFiles      bool
	UpdateExisting      bool
	RunOnce             bool
	After               *time.Time
	Before              *time.Time
}

// Run drives the cycle loop until ctx is cancelled, the cancellation handle
// is set, the cursor reaches Before, or RunOnce completes a single cycle
// (§4.8). A set cancellation handle makes Run return an error, as does an
// InvariantViolation from a cycle; other cycle errors are logged and the loop
// goes on. When the cursor is behind now(), cycles run back-to-back to catch
// up; only once it's caught up does the loop sleep to the next hour boundary,
// polling the cancellation handle while it sleeps.
func Run(ctx context.Context, l logger.Logger, cancel *Cancel, cfg LoopConfig) error {
	cursor, err := resolveCursor(ctx, cfg.Store, cfg.After)
	if err != nil {
		return err
	}

	for {
		if cancel.Cancelled() {
			return errors.New("import cancelled by interrupt")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cursor != nil && cfg.Before != nil && !cursor.Before(*cfg.Before) {
			return nil
		}

		if cursor != nil && nextHour(*cursor).After(time.Now()) {
			wake := nextHour(time.Now()).Add(time.Minute)
			for time.Now().Before(wake) && !cancel.Cancelled() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(downloadPollInterval):
				}
			}
			continue
		}

		next, err := runOneCycle(ctx, l, cancel, cfg, cursor)
		var invariantErr *InvariantViolation
		if errors.As(err, &invariantErr) {
			return err
		}
		if err != nil {
			l.Error("import cycle failed: %v", err)
		} else if next != nil {
			advanced := nextHour(*next)
			cursor = &advanced
		}

		if cfg.RunOnce && !cancel.Cancelled() {
			return nil
		}
	}
}

// runOneCycle performs one full discover/build/download/upload pass and
// returns the new watermark cursor (the latest source_modified_date among
// items imported this cycle), or the input cursor unchanged if nothing was
// discovered or nothing was imported (§4.8).
func runOneCycle(ctx context.Context, l logger.Logger, cancel *Cancel, cfg LoopConfig, cursor *time.Time) (*time.Time, error) {
	descriptors, err := cfg.Lister.ListByModifiedDate(ctx, cursor, cfg.Before)
	if err != nil {
		return cursor, err
	}
	if len(descriptors) == 0 {
		return cursor, nil
	}

	items, err := build(ctx, l, cfg.Store, descriptors, cfg.TargetDir, cancel)
	if err != nil {
		return cursor, err
	}
	if len(items) == 0 {
		return cursor, nil
	}

	start := time.Now()
	l.Notice("import cycle started at %s: %d file(s) to download and upload",
		start.UTC().Format(time.RFC3339), len(items))

	p := pool.New(cfg.DownloadConcurrency)

	done := make(chan struct{})
	go func() {
		downloadAll(ctx, l, items, p, cfg.DownloadTimeout)
		close(done)
	}()

	uploadErr := uploadAll(ctx, l, items, cfg.Client, cfg.Store, cfg.KeepLocalFiles, cfg.UpdateExisting)
	<-done

	// The cycle may have stopped early (cancellation, a download timeout, a
	// cancelled ctx); any item whose outcome the upload loop never recorded
	// still needs error=true in its catalog row instead of staying NULL
	// (§4.5 step 2, §8 scenario 3). Use
	// context.Background so this write isn't skipped just because ctx is
	// itself the thing that ended the cycle.
	markUnfinished(context.Background(), l, items, cfg.Store)

	var latest *time.Time
	for _, item := range items {
		if !item.Status.Imported() {
			continue
		}
		md := item.SourceDescriptor.ModifiedDate
		if latest == nil || md.After(*latest) {
			latest = &md
		}
	}
	if latest == nil {
		latest = cursor
	}

	end := time.Now()
	l.Notice("import cycle ended at %s after %s", end.UTC().Format(time.RFC3339), end.Sub(start))

	return latest, uploadErr
}
