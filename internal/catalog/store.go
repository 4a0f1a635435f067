package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS collection_files (
	collection_file_id   UUID PRIMARY KEY,
	source_file_id       TEXT NOT NULL UNIQUE,
	file_name            TEXT NOT NULL UNIQUE,
	source_modified_date TIMESTAMP NOT NULL,
	timestamp            TIMESTAMP NOT NULL UNIQUE,
	imported             BOOLEAN,
	error                BOOLEAN
)`

// DatabaseError wraps any failure talking to the catalog store. The cycle
// orchestrator treats it as fatal for the item that triggered it but
// continues with the rest of the cycle.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string { return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err) }
func (e *DatabaseError) Unwrap() error { return e.Err }

// Store owns the Postgres connection pool backing the catalog.
type Store struct {
	db *sql.DB
}

// Open connects to the catalog database and verifies reachability.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "ping", Err: err}
	}
	return &Store{db: db}, nil
}

// Initialize ensures the collection_files table exists. If reinitialize is
// true, it is dropped first, discarding any existing catalog rows.
func (s *Store) Initialize(ctx context.Context, reinitialize bool) error {
	if reinitialize {
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS collection_files`); err != nil {
			return &DatabaseError{Op: "drop table", Err: err}
		}
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &DatabaseError{Op: "create table", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LatestImportedModifiedDate returns the maximum source_modified_date among
// rows with imported = true, feeding the watermark resolver (§4.1). It
// returns nil if no row has been imported yet.
func (s *Store) LatestImportedModifiedDate(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	row := s.db.QueryRowContext(ctx,
		`SELECT max(source_modified_date) FROM collection_files WHERE imported = true`)
	if err := row.Scan(&t); err != nil {
		return nil, &DatabaseError{Op: "latest imported modified date", Err: err}
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

// GetBySourceFileIDs returns existing rows keyed by source_file_id, for the
// subset of ids that are already in the catalog.
func (s *Store) GetBySourceFileIDs(ctx context.Context, sourceFileIDs []string) (map[string]CollectionFile, error) {
	return getBySourceFileIDs(ctx, s.db, sourceFileIDs)
}

func getBySourceFileIDs(ctx context.Context, q querier, sourceFileIDs []string) (map[string]CollectionFile, error) {
	out := make(map[string]CollectionFile, len(sourceFileIDs))
	if len(sourceFileIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT collection_file_id, source_file_id, file_name, source_modified_date, timestamp, imported, error
		 FROM collection_files WHERE source_file_id = ANY($1)`,
		pq.Array(sourceFileIDs))
	if err != nil {
		return nil, &DatabaseError{Op: "get by source file ids", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var cf CollectionFile
		var imported, errored sql.NullBool
		if err := rows.Scan(&cf.CollectionFileID, &cf.SourceFileID, &cf.FileName,
			&cf.SourceModifiedDate, &cf.Timestamp, &imported, &errored); err != nil {
			return nil, &DatabaseError{Op: "scan collection file", Err: err}
		}
		if imported.Valid {
			v := imported.Bool
			cf.Imported = &v
		}
		if errored.Valid {
			v := errored.Bool
			cf.Error = &v
		}
		out[cf.SourceFileID] = cf
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "iterate collection files", Err: err}
	}
	return out, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting the reads that
// back the unit-of-work reuse the same scanning code inside and outside a
// transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// uuidOrNew assigns a fresh id when the candidate has none, matching the
// catalog's "assigned by the catalog on first insert" invariant (§3).
func uuidOrNew(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
