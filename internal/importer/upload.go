package importer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/catalog"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/ingestclient"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/ptr"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
	"github.com/buildkite/roko"
)

// uploadAttempts bounds the retries roko performs against a single item's
// upload call (§4.5 step 2, uploadAttempts default 2).
const uploadAttempts = 2

const downloadPollInterval = 100 * time.Millisecond

// isRetryableUploadError decides whether uploadOne's retrier should try
// again: connection-level errors, or an ApiError carrying a retryable
// status code (429 or one of the listed 5xx). Any other status is permanent
// and not worth retrying.
func isRetryableUploadError(err error) bool {
	var apiErr *ingestclient.ApiError
	if errors.As(err, &apiErr) {
		return ingestclient.IsRetryableStatus(apiErr.StatusCode)
	}
	return ingestclient.IsRetryableError(err)
}

// uploadAll drains items strictly in order, blocking on each item's
// download-terminal state before moving on (§4.5). It stops early if a
// download timeout or cancellation is observed, leaving the remaining items
// untouched here; the caller is responsible for sweeping them into a
// terminal state once the cycle has joined (§4.5 step 2, §8 scenario 3).
func uploadAll(
	ctx context.Context,
	l logger.Logger,
	items []*WorkItem,
	client *ingestclient.Client,
	store *catalog.Store,
	keepLocalFiles bool,
	updateExisting bool,
) error {
	for _, item := range items {
		if item.Cancel.Cancelled() {
			return nil
		}

		for !item.Status.DownloadTerminal() {
			if item.Status.DownloadTimedOut() || item.Cancel.Cancelled() {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(downloadPollInterval):
			}
		}
		if item.Status.DownloadTimedOut() {
			return nil
		}

		change := catalog.Change{CollectionFileID: item.CollectionFileID}

		if item.Status.DownloadError() {
			change.Error = ptr.To(true)
		} else {
			change = uploadOne(ctx, l, item, client, keepLocalFiles, updateExisting)
		}

		if err := writeChange(ctx, store, change); err != nil {
			l.Error("failed to record catalog change for %s: %v", item.SourceDescriptor.Name, err)
		}
		if change.Imported != nil && *change.Imported {
			item.Status.SetImported()
		} else if change.Error != nil && *change.Error {
			item.Status.SetImportError()
		}
	}
	return nil
}

// markUnfinished writes Change{error=true} for every item whose outcome the
// upload loop never recorded (it stopped early on cancellation, a download
// timeout, or a cancelled ctx before it got to them). That includes items
// whose download failed or timed out, or that the shut-down pool refused.
// Takes writeCtx separately from the cycle's own ctx so these rows can still
// be written even after that ctx is done (§4.5 step 2, §8 scenario 3 — a
// cycle stopped early still records error=true on every untouched item
// rather than leaving it NULL).
func markUnfinished(writeCtx context.Context, l logger.Logger, items []*WorkItem, store *catalog.Store) {
	for _, item := range items {
		if item.Status.Imported() || item.Status.ImportError() {
			continue
		}
		change := catalog.Change{CollectionFileID: item.CollectionFileID, Error: ptr.To(true)}
		if err := writeChange(writeCtx, store, change); err != nil {
			l.Error("failed to record catalog change for %s: %v", item.SourceDescriptor.Name, err)
			continue
		}
		item.Status.SetImportError()
	}
}

// uploadOne sends one downloaded item's content to the ingestion API,
// retrying transient failures, and returns the catalog.Change the outcome
// implies (§4.5, §4.5.1).
func uploadOne(ctx context.Context, l logger.Logger, item *WorkItem, client *ingestclient.Client, keepLocalFiles, updateExisting bool) catalog.Change {
	change := catalog.Change{CollectionFileID: item.CollectionFileID}

	content, err := os.ReadFile(item.TargetPath)
	switch {
	case err != nil:
		l.Error("failed to read %s for upload: %v", item.TargetPath, err)
		change.Imported = ptr.To(false)
		change.Error = ptr.To(true)
		return change
	case isEmptyJSON(content):
		l.Warn("skipping %s: empty JSON payload", item.TargetPath)
		change.Imported = ptr.To(false)
		change.Error = ptr.To(true)
		return change
	}

	timestamp := formatFileNameTimestamp(mustParseTimestamp(item), '_')

	var nonUnique *ingestclient.NonUniqueTimestampError
	var conflict *ingestclient.ConflictError
	var finalErr error

	roko.NewRetrier(
		roko.WithMaxAttempts(uploadAttempts),
		roko.WithStrategy(roko.Exponential(2*time.Second, 0)),
		roko.WithJitter(),
	).DoWithContext(ctx, func(r *roko.Retrier) error {
		_, err := client.UploadCollection(ctx, timestamp, content)
		finalErr = err
		if err == nil || errors.As(err, &nonUnique) || !isRetryableUploadError(err) {
			return nil
		}
		l.Warn("error uploading %s (%s) %s", item.SourceDescriptor.Name, err, r)
		return err
	})

	switch {
	case nonUnique != nil && updateExisting:
		_, updErr := client.UpdateCollection(ctx, timestamp, content)
		switch {
		case updErr == nil:
			change.Imported = ptr.To(true)
		case errors.As(updErr, &conflict):
			l.Warn("conflict updating %s, leaving existing record: %v", item.SourceDescriptor.Name, updErr)
			change.Imported = ptr.To(true)
		default:
			l.Error("failed updating %s: %v", item.SourceDescriptor.Name, updErr)
			change.Imported = ptr.To(false)
			change.Error = ptr.To(true)
		}
	case nonUnique != nil:
		change.Imported = ptr.To(true)
	case finalErr != nil:
		l.Error("giving up uploading %s: %v", item.SourceDescriptor.Name, finalErr)
		change.Imported = ptr.To(false)
		change.Error = ptr.To(true)
	default:
		change.Imported = ptr.To(true)
	}

	if change.Imported != nil && *change.Imported {
		change.Error = ptr.To(false)
	}

	if change.Imported != nil && *change.Imported && !keepLocalFiles {
		if err := os.Remove(item.TargetPath); err != nil {
			l.Warn("failed to remove local file %s: %v", item.TargetPath, err)
		}
	}

	return change
}

// isEmptyJSON reports whether content decodes to a JSON value Python's
// `if not contents:` would treat as falsy: null, false, zero, an empty
// string, an empty array, or an empty object. Malformed JSON also counts as
// empty, since it can't carry a real collection. Grounded on
// skip_file_import_on_error's `if not contents:` check over
// FileSystem.load_json in original_source/src/app/importer/import_worker.py.
func isEmptyJSON(content []byte) bool {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return true
	}
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case float64:
		return val == 0
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// mustParseTimestamp re-derives the logical timestamp from the item's file
// name; builder already validated it, so a failure here is unreachable.
func mustParseTimestamp(item *WorkItem) time.Time {
	t, err := parseFileNameTimestamp(item.SourceDescriptor.Name)
	if err != nil {
		return time.Time{}
	}
	return t
}

// writeChange applies a catalog mutation in its own unit-of-work (§4.6).
func writeChange(ctx context.Context, store *catalog.Store, change catalog.Change) error {
	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := uow.ApplyChange(ctx, change); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit(ctx)
}
