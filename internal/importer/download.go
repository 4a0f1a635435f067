package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/osutil"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/pool"
	"github.com/buildkite/roko"
	"github.com/dustin/go-humanize"
)

// TimeoutError means a single download exceeded the configured per-item
// timeout. The download pool treats this as fatal for the whole cycle and
// shuts down (§4.4, §7).
type TimeoutError struct {
	FileName string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("download of %s timed out", e.FileName)
}

// downloadAttempts bounds the retries roko performs against a single
// descriptor's FetchContent before the worker gives up on that item (§4.4
// step 2, maxAttempts default 3).
const downloadAttempts = 3

// downloadAll spawns one pool job per item. It returns once every item has
// either reached a download-terminal state or the pool has been shut down by
// a timeout. A per-item timeout shuts the whole pool down rather than just
// failing that item (§4.4).
func downloadAll(ctx context.Context, l logger.Logger, items []*WorkItem, p *pool.Pool, timeout time.Duration) {
	for _, item := range items {
		item := item
		spawned := p.Spawn(func() {
			downloadOne(ctx, l, item, p, timeout)
		})
		if !spawned {
			item.Status.SetDownloadError()
			l.Warn("download pool closed, skipping %s", item.SourceDescriptor.Name)
		}
	}
	p.Wait()
}

// downloadOne fetches a single descriptor's content to its target path,
// skipping the fetch entirely if a file of the right size is already present
// (§4.4 step 1 — restart resumption).
func downloadOne(ctx context.Context, l logger.Logger, item *WorkItem, p *pool.Pool, timeout time.Duration) {
	if item.Cancel.Cancelled() {
		item.Status.SetDownloadError()
		return
	}

	if osutil.FileExists(item.TargetPath) {
		if fi, err := os.Stat(item.TargetPath); err == nil && fi.Size() == item.SourceDescriptor.Size {
			l.Debug("%s already present (%s), skipping download", item.SourceDescriptor.Name, humanize.IBytes(uint64(fi.Size())))
			item.Status.SetDownloaded()
			return
		}
	}

	downloadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := roko.NewRetrier(
		roko.WithMaxAttempts(downloadAttempts),
		roko.WithStrategy(roko.Exponential(2*time.Second, 0)),
		roko.WithJitter(),
	).DoWithContext(downloadCtx, func(r *roko.Retrier) error {
		if item.Cancel.Cancelled() {
			r.Break()
			return fmt.Errorf("download of %s cancelled", item.SourceDescriptor.Name)
		}
		content, err := item.SourceDescriptor.FetchContent(downloadCtx)
		if err != nil {
			l.Warn("error downloading %s (%s) %s", item.SourceDescriptor.Name, err, r)
			return err
		}
		return writeAtomic(item.TargetPath, content)
	})

	switch {
	case downloadCtx.Err() == context.DeadlineExceeded:
		item.Status.SetDownloadTimedOut()
		item.Status.SetDownloadError()
		l.Error("download of %s timed out, shutting down download pool", item.SourceDescriptor.Name)
		p.Shutdown()
	case err != nil:
		item.Status.SetDownloadError()
		l.Error("giving up downloading %s: %v", item.SourceDescriptor.Name, err)
	default:
		l.Info("downloaded %s (%s)", item.SourceDescriptor.Name, humanize.IBytes(uint64(item.SourceDescriptor.Size)))
		item.Status.SetDownloaded()
	}
}

// writeAtomic writes content to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a
// partially-written file at path for a later skip-if-present check to trust.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
