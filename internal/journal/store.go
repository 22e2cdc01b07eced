// Package journal records every file change cesm makes in a SQLite database
// so that a run can be listed later and reverted.
package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cesm/internal/logging"

	json "github.com/goccy/go-json"
	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

var (
	ErrRunNotFound     = errors.New("run not found")
	ErrAmbiguousRun    = errors.New("run id prefix matches more than one run")
	ErrAlreadyReverted = errors.New("run already reverted")
)

// Store is the journal database.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string    `json:"id"`
	Command     string    `json:"command"`
	Args        []string  `json:"args"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	ChangeCount int       `json:"change_count"`
	Reverted    bool      `json:"reverted"`
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.migrateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	logging.JournalDebug("opened journal %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

//go:embed migrations/*.sql
var migrations embed.FS

// migrateSchema brings the database to the latest schema version.
func (s *Store) migrateSchema() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	drv, err := msqlite.WithInstance(s.db, &msqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return err
	}
	// m.Close would close s.db as well; only the source needs releasing
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, _, err := m.Version()
	if err == nil {
		logging.JournalDebug("journal schema at version %d", version)
	}
	return nil
}

const runColumns = `id, command, args, started_at, finished_at, change_count, reverted`

func scanRun(row interface{ Scan(...interface{}) error }) (RunSummary, error) {
	var (
		r        RunSummary
		args     string
		started  int64
		finished sql.NullInt64
		reverted int
	)
	if err := row.Scan(&r.ID, &r.Command, &args, &started, &finished, &r.ChangeCount, &reverted); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(args), &r.Args); err != nil {
		return r, fmt.Errorf("corrupt args for run %s: %w", r.ID, err)
	}
	r.StartedAt = time.Unix(0, started)
	if finished.Valid {
		r.FinishedAt = time.Unix(0, finished.Int64)
	}
	r.Reverted = reverted != 0
	return r, nil
}

// List returns runs newest first. A limit of zero or less returns all runs.
func (s *Store) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get looks a run up by id or unique id prefix.
func (s *Store) Get(id string) (RunSummary, error) {
	if id == "" {
		return RunSummary{}, ErrRunNotFound
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return RunSummary{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, err
	}
	switch len(found) {
	case 0:
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	}
	return RunSummary{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
}
