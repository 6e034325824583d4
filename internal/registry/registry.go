// Package registry is the audit-log component (component I): every Pack
// or Unpack call, once it reaches NotifyEnd, is recorded as a
// RegistryEntry in a SQLite database, the same way bt-go/internal/database
// opens and migrates its backup database — except that the teacher's
// generated sqlc query layer was never retrieved alongside it, so this
// package talks to database/sql directly with hand-written SQL (see
// DESIGN.md).
package registry

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"cipherpack/internal/registry/migrations"
)

// RegistryEntry is one audit-log row: the outcome of a single Pack or
// Unpack call.
type RegistryEntry struct {
	ID                    int64
	OperationID           string
	Mode                  string // "pack" or "unpack"
	HostFingerprint       []byte
	RecipientFingerprints [][]byte
	Success               bool
	ErrorKind             string
	ContentSize           int64
	StartedAt             time.Time
	FinishedAt            time.Time
}

// Store is a handle on the registry's SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the registry database at path and
// brings its schema up to date. path may be ":memory:" for an ephemeral
// registry, e.g. in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating registry database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one completed Pack or Unpack call. A duplicate
// OperationID is rejected by the table's UNIQUE constraint.
func (s *Store) Append(e RegistryEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO registry_entries
			(operation_id, mode, host_fingerprint, recipient_fingerprints,
			 success, error_kind, content_size, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OperationID,
		e.Mode,
		e.HostFingerprint,
		encodeFingerprints(e.RecipientFingerprints),
		e.Success,
		e.ErrorKind,
		e.ContentSize,
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("appending registry entry: %w", err)
	}
	return nil
}

// List returns up to limit registry entries, most recently finished first.
// A non-positive limit returns every entry.
func (s *Store) List(limit int) ([]RegistryEntry, error) {
	query := `SELECT id, operation_id, mode, host_fingerprint, recipient_fingerprints,
			success, error_kind, content_size, started_at, finished_at
		FROM registry_entries ORDER BY finished_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing registry entries: %w", err)
	}
	defer rows.Close()

	var entries []RegistryEntry
	for rows.Next() {
		var e RegistryEntry
		var recipientFPs string
		if err := rows.Scan(
			&e.ID, &e.OperationID, &e.Mode, &e.HostFingerprint, &recipientFPs,
			&e.Success, &e.ErrorKind, &e.ContentSize, &e.StartedAt, &e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning registry entry: %w", err)
		}
		e.RecipientFingerprints, err = decodeFingerprints(recipientFPs)
		if err != nil {
			return nil, fmt.Errorf("decoding recipient fingerprints: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing registry entries: %w", err)
	}

	return entries, nil
}

// encodeFingerprints packs a slice of fingerprints into a single
// comma-separated hex column, since SQLite has no native array type and
// a recipient list join table is overkill for an append-only audit log.
func encodeFingerprints(fps [][]byte) string {
	parts := make([]string, len(fps))
	for i, fp := range fps {
		parts[i] = hex.EncodeToString(fp)
	}
	return strings.Join(parts, ",")
}

func decodeFingerprints(s string) ([][]byte, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	fps := make([][]byte, len(parts))
	for i, p := range parts {
		fp, err := hex.DecodeString(p)
		if err != nil {
			return nil, err
		}
		fps[i] = fp
	}
	return fps, nil
}
