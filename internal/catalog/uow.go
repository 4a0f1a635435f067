package catalog

import (
	"context"
	"database/sql"
)

// UnitOfWork is a short-lived transactional boundary enclosing a set of
// repository operations and a single commit/rollback, per DESIGN NOTES §9.
// Nothing outside this file touches the underlying *sql.Tx.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// Begin opens a new unit-of-work.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "begin", Err: err}
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit finalizes the unit-of-work. Calling it twice, or after Rollback, is
// a no-op.
func (uow *UnitOfWork) Commit(ctx context.Context) error {
	if uow.done {
		return nil
	}
	uow.done = true
	if err := uow.tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback aborts the unit-of-work. Calling it after Commit, or twice, is a
// no-op.
func (uow *UnitOfWork) Rollback() error {
	if uow.done {
		return nil
	}
	uow.done = true
	if err := uow.tx.Rollback(); err != nil {
		return &DatabaseError{Op: "rollback", Err: err}
	}
	return nil
}

// GetBySourceFileIDs reads existing rows within the unit-of-work's
// transaction, so the work-item builder's read-then-insert is atomic (§4.3).
func (uow *UnitOfWork) GetBySourceFileIDs(ctx context.Context, sourceFileIDs []string) (map[string]CollectionFile, error) {
	return getBySourceFileIDs(ctx, uow.tx, sourceFileIDs)
}

// Insert adds fresh catalog rows for candidates that the builder determined
// are not yet present, assigning a CollectionFileID to any row that doesn't
// already have one.
func (uow *UnitOfWork) Insert(ctx context.Context, rows []CollectionFile) ([]CollectionFile, error) {
	inserted := make([]CollectionFile, len(rows))
	for i, cf := range rows {
		cf.CollectionFileID = uuidOrNew(cf.CollectionFileID)
		_, err := uow.tx.ExecContext(ctx,
			`INSERT INTO collection_files
				(collection_file_id, source_file_id, file_name, source_modified_date, timestamp, imported, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cf.CollectionFileID, cf.SourceFileID, cf.FileName, cf.SourceModifiedDate, cf.Timestamp,
			cf.Imported, cf.Error)
		if err != nil {
			return nil, &DatabaseError{Op: "insert collection file", Err: err}
		}
		inserted[i] = cf
	}
	return inserted, nil
}

// ApplyChange mutates only the fields the Change carries, leaving the rest
// of the row untouched (§4.6). It reports whether a row with that id existed.
func (uow *UnitOfWork) ApplyChange(ctx context.Context, change Change) (bool, error) {
	row := uow.tx.QueryRowContext(ctx,
		`SELECT imported, error FROM collection_files WHERE collection_file_id = $1 FOR UPDATE`,
		change.CollectionFileID)

	var imported, errored sql.NullBool
	if err := row.Scan(&imported, &errored); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, &DatabaseError{Op: "load collection file", Err: err}
	}

	if change.Imported != nil {
		imported = sql.NullBool{Bool: *change.Imported, Valid: true}
	}
	if change.Error != nil {
		errored = sql.NullBool{Bool: *change.Error, Valid: true}
	}

	_, err := uow.tx.ExecContext(ctx,
		`UPDATE collection_files SET imported = $2, error = $3 WHERE collection_file_id = $1`,
		change.CollectionFileID, nullableBool(imported), nullableBool(errored))
	if err != nil {
		return false, &DatabaseError{Op: "apply change", Err: err}
	}
	return true, nil
}

func nullableBool(n sql.NullBool) any {
	if !n.Valid {
		return nil
	}
	return n.Bool
}
