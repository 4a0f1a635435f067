package importer

import (
	"path/filepath"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/catalog"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/objectstore"
	"github.com/google/uuid"
)

// WorkItem is one unit of pipeline work, created per cycle per artifact
// discovered (§3). The cycle orchestrator exclusively owns the slice of
// WorkItems for its cycle; each stage holds only the handles it needs.
type WorkItem struct {
	ItemNo            int
	SourceDescriptor  objectstore.SourceDescriptor
	CollectionFileID  uuid.UUID
	TargetPath        string
	Status            WorkItemStatus
	Cancel            *Cancel
}

// targetPath builds the local download path for a descriptor, per §5's
// "path = target_dir / file_name" rule, which guarantees no file-level
// contention between parallel downloads.
func targetPath(targetDir string, name string) string {
	return filepath.Join(targetDir, name)
}
