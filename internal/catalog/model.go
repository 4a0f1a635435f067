// Package catalog persists the durable record of every collection file this
// importer has seen, through a small unit-of-work wrapping a Postgres table.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// CollectionFile is the durable record for one artifact seen in the object
// store. Once Imported is true, the row is effectively immutable by the
// importer: nothing but the catalog writer (through a Change) ever mutates
// it again.
type CollectionFile struct {
	CollectionFileID   uuid.UUID
	SourceFileID       string
	FileName           string
	SourceModifiedDate time.Time
	Timestamp          time.Time

	// Imported and Error are tri-state: nil means "never attempted" /
	// "no error recorded", not false.
	Imported *bool
	Error    *bool
}

// Change is an immutable catalog mutation. A nil field means "leave as is".
type Change struct {
	CollectionFileID uuid.UUID
	Imported         *bool
	Error            *bool
}
