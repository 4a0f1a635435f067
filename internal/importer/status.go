package importer

import (
	"sync/atomic"
	"time"
)

// WorkItemStatus holds the monotonic transition flags for one WorkItem
// (§3). Each flag toggles at most once, false→true; per DESIGN NOTES §9 that
// makes atomic compare-and-set the natural primitive, one flag per logical
// transition rather than a single mutex guarding the whole struct.
type WorkItemStatus struct {
	downloaded        atomic.Bool
	downloadError     atomic.Bool
	downloadTimedOut  atomic.Bool
	imported          atomic.Bool
	importError       atomic.Bool
	downloadedAtNanos atomic.Int64
	importedAtNanos   atomic.Int64
}

// SetDownloaded marks the item downloaded. Returns false if it was already
// set (the transition is monotonic: first writer wins).
func (s *WorkItemStatus) SetDownloaded() bool {
	if s.downloaded.CompareAndSwap(false, true) {
		s.downloadedAtNanos.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (s *WorkItemStatus) Downloaded() bool { return s.downloaded.Load() }

func (s *WorkItemStatus) SetDownloadError() bool {
	return s.downloadError.CompareAndSwap(false, true)
}

func (s *WorkItemStatus) DownloadError() bool { return s.downloadError.Load() }

func (s *WorkItemStatus) SetDownloadTimedOut() bool {
	return s.downloadTimedOut.CompareAndSwap(false, true)
}

func (s *WorkItemStatus) DownloadTimedOut() bool { return s.downloadTimedOut.Load() }

func (s *WorkItemStatus) SetImported() bool {
	if s.imported.CompareAndSwap(false, true) {
		s.importedAtNanos.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (s *WorkItemStatus) Imported() bool { return s.imported.Load() }

func (s *WorkItemStatus) SetImportError() bool {
	return s.importError.CompareAndSwap(false, true)
}

func (s *WorkItemStatus) ImportError() bool { return s.importError.Load() }

// Done reports whether the item has reached a terminal state: imported,
// import_error, or download_error (§3 GLOSSARY "Done").
func (s *WorkItemStatus) Done() bool {
	return s.imported.Load() || s.importError.Load() || s.downloadError.Load()
}

// DownloadTerminal reports whether the download stage has reached a
// terminal state (downloaded or download_error), the condition the upload
// worker polls for (§4.5 step 1).
func (s *WorkItemStatus) DownloadTerminal() bool {
	return s.downloaded.Load() || s.downloadError.Load()
}
