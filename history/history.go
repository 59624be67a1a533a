// Package history records finished runs in a SQLite database so they can be
// listed and inspected later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/bfi/runner"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    INTEGER NOT NULL,
	source        TEXT NOT NULL,
	source_sha256 TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	message       TEXT NOT NULL,
	ip            INTEGER NOT NULL,
	mp            INTEGER NOT NULL,
	steps         INTEGER NOT NULL,
	output        BLOB,
	elapsed_ns    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
CREATE INDEX IF NOT EXISTS runs_source_sha256 ON runs (source_sha256);
`

// Run is one recorded execution.
type Run struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Report    runner.Report
}

// Store handles SQLite storage for runs
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLite's lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Record stores a finished run and returns its new ID.
func (s *Store) Record(ctx context.Context, source string, r *runner.Report) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, source, source_sha256, outcome, message, ip, mp, steps, output, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UnixNano(), source, r.SourceSum, r.Outcome, r.Message,
		r.IP, r.MP, r.Steps, r.Output, int64(r.Elapsed),
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

const selectRun = `SELECT id, created_at, source, source_sha256, outcome, message, ip, mp, steps, output, elapsed_ns FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		createdAt int64
		elapsed   int64
	)
	r := &run.Report
	if err := row.Scan(&run.ID, &createdAt, &run.Source, &r.SourceSum, &r.Outcome, &r.Message,
		&r.IP, &r.MP, &r.Steps, &r.Output, &elapsed); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt)
	r.Elapsed = time.Duration(elapsed)
	return &run, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.query(ctx, selectRun+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// ForSource returns every run of the source with the given SHA-256, newest first.
func (s *Store) ForSource(ctx context.Context, sum string) ([]Run, error) {
	return s.query(ctx, selectRun+` WHERE source_sha256 = ? ORDER BY created_at DESC, rowid DESC`, sum)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Outcomes counts recorded runs per outcome.
func (s *Store) Outcomes(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("counting outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
