package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one verified artifact.
type Entry struct {
	Path       string
	Name       string
	Provider   string
	Size       int64
	ModTime    time.Time
	Digest     string
	VerifiedAt time.Time
}

// Matches reports whether the entry still describes the file with the given
// size and modification time.
func (e *Entry) Matches(info os.FileInfo) bool {
	if e == nil || info == nil {
		return false
	}
	return e.Size == info.Size() && e.ModTime.UnixNano() == info.ModTime().UnixNano()
}

// Store manages the verification ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const entryColumns = "path, name, provider, size_bytes, mtime_ns, digest, verified_at"

// Lookup returns the entry recorded for path, or nil when none exists.
func (s *Store) Lookup(ctx context.Context, path string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM artifacts WHERE path = ?`, path)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup artifact: %w", err)
	}
	return entry, nil
}

// Record inserts or replaces the entry for entry.Path.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.Path == "" {
		return errors.New("ledger entry path is empty")
	}
	if entry.VerifiedAt.IsZero() {
		entry.VerifiedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             name = excluded.name,
             provider = excluded.provider,
             size_bytes = excluded.size_bytes,
             mtime_ns = excluded.mtime_ns,
             digest = excluded.digest,
             verified_at = excluded.verified_at`,
		entry.Path,
		entry.Name,
		entry.Provider,
		entry.Size,
		entry.ModTime.UnixNano(),
		entry.Digest,
		entry.VerifiedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

// Forget removes the entry for path. Missing entries are not an error.
func (s *Store) Forget(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("forget artifact: %w", err)
	}
	return nil
}

// List returns all entries ordered by artifact name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM artifacts ORDER BY name, path`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return entries, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		mtimeNanos  int64
		verifiedRaw string
	)
	if err := scanner.Scan(
		&entry.Path,
		&entry.Name,
		&entry.Provider,
		&entry.Size,
		&mtimeNanos,
		&entry.Digest,
		&verifiedRaw,
	); err != nil {
		return nil, err
	}
	entry.ModTime = time.Unix(0, mtimeNanos)
	if ts, err := time.Parse(time.RFC3339Nano, verifiedRaw); err == nil {
		entry.VerifiedAt = ts
	}
	return &entry, nil
}
