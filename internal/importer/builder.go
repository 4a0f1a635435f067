package importer

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/catalog"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/internal/objectstore"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
)

// InvariantViolation signals an internal bug: the builder's contract (the
// set of source_file_id across descriptors and returned rows must match)
// was broken. It is fatal (§7).
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.Detail }

type buildStore interface {
	Begin(ctx context.Context) (*catalog.UnitOfWork, error)
}

type candidate struct {
	descriptor objectstore.SourceDescriptor
	cf         catalog.CollectionFile
}

// build matches listed artifacts against catalog rows and produces ordered
// work items (§4.3). Descriptors that fail the file-name grammar are
// rejected and logged, not fatal.
func build(
	ctx context.Context,
	l logger.Logger,
	store buildStore,
	descriptors []objectstore.SourceDescriptor,
	targetDir string,
	cancel *Cancel,
) ([]*WorkItem, error) {
	candidates := make([]candidate, 0, len(descriptors))
	for _, d := range descriptors {
		ts, err := parseFileNameTimestamp(d.Name)
		if err != nil {
			l.Warn("rejecting %s: %v", d.Name, err)
			continue
		}
		candidates = append(candidates, candidate{
			descriptor: d,
			cf: catalog.CollectionFile{
				SourceFileID:       d.ID,
				FileName:           d.Name,
				SourceModifiedDate: d.ModifiedDate,
				Timestamp:          ts,
			},
		})
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(normalizedSortKey(a.cf.FileName), normalizedSortKey(b.cf.FileName))
	})

	sourceFileIDs := make([]string, len(candidates))
	for i, c := range candidates {
		sourceFileIDs[i] = c.cf.SourceFileID
	}

	uow, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := uow.GetBySourceFileIDs(ctx, sourceFileIDs)
	if err != nil {
		uow.Rollback()
		return nil, err
	}

	var toInsert []catalog.CollectionFile
	for _, c := range candidates {
		if _, ok := existing[c.cf.SourceFileID]; !ok {
			toInsert = append(toInsert, c.cf)
		}
	}

	inserted, err := uow.Insert(ctx, toInsert)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	for _, cf := range inserted {
		existing[cf.SourceFileID] = cf
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	items := make([]*WorkItem, 0, len(candidates))
	for i, c := range candidates {
		row, ok := existing[c.cf.SourceFileID]
		if !ok {
			return nil, &InvariantViolation{
				Detail: fmt.Sprintf("descriptor %s has no matching catalog row after insert", c.cf.SourceFileID),
			}
		}
		items = append(items, &WorkItem{
			ItemNo:           i + 1,
			SourceDescriptor: c.descriptor,
			CollectionFileID: row.CollectionFileID,
			TargetPath:       targetPath(targetDir, c.descriptor.Name),
			Cancel:           cancel,
		})
	}

	if len(items) != len(candidates) {
		return nil, &InvariantViolation{Detail: "work item count does not match candidate count"}
	}

	return items, nil
}
