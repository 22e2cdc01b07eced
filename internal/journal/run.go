package journal

import (
	"fmt"
	"time"

	"cesm/internal/nest"
	"cesm/internal/world"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ChangeKind says how a change is undone.
type ChangeKind string

const (
	KindRewrite  ChangeKind = "rewrite"
	KindMove     ChangeKind = "move"
	KindGenerate ChangeKind = "generate"
)

// Change is one recorded file change.
type Change struct {
	Seq        int
	Kind       ChangeKind
	Path       string
	Dest       string
	Before     []byte
	Existed    bool
	CreatedDir bool
	AfterHash  string
}

// Run is an open journal entry. Changes are written as they are recorded.
type Run struct {
	store   *Store
	ID      string
	Command string
	Args    []string
	seq     int
}

// Begin opens a new run.
func (s *Store) Begin(command string, args []string) (*Run, error) {
	if args == nil {
		args = []string{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}

	run := &Run{store: s, ID: uuid.NewString(), Command: command, Args: args}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO runs (id, command, args, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, command, string(encoded), time.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	return run, nil
}

func (r *Run) record(c Change) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.seq++
	existed, createdDir := 0, 0
	if c.Existed {
		existed = 1
	}
	if c.CreatedDir {
		createdDir = 1
	}
	_, err := r.store.db.Exec(`INSERT INTO changes (run_id, seq, kind, path, dest, before, existed, created_dir, after_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.seq, string(c.Kind), c.Path, c.Dest, c.Before, existed, createdDir, c.AfterHash)
	if err != nil {
		r.seq--
		return fmt.Errorf("failed to record change for %s: %w", c.Path, err)
	}
	return nil
}

// RecordRewrite stores the pre-rewrite content of path.
func (r *Run) RecordRewrite(path string, before, after []byte) error {
	return r.record(Change{Kind: KindRewrite, Path: path, Before: before, Existed: true, AfterHash: world.HashBytes(after)})
}

// RecordMove stores an applied nest move.
func (r *Run) RecordMove(m nest.Move) error {
	return r.record(Change{Kind: KindMove, Path: m.From, Dest: m.To, Existed: true, CreatedDir: m.CreatedDir})
}

// RecordGenerate stores a generated output file and what it replaced.
func (r *Run) RecordGenerate(path string, before []byte, existed bool, after []byte) error {
	if !existed {
		before = nil
	}
	return r.record(Change{Kind: KindGenerate, Path: path, Before: before, Existed: existed, AfterHash: world.HashBytes(after)})
}

// Count returns the number of changes recorded so far.
func (r *Run) Count() int {
	return r.seq
}

// Finish closes the run. A run with no changes is deleted.
func (r *Run) Finish() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.seq == 0 {
		_, err := r.store.db.Exec(`DELETE FROM runs WHERE id = ?`, r.ID)
		return err
	}
	_, err := r.store.db.Exec(`UPDATE runs SET finished_at = ?, change_count = ? WHERE id = ?`,
		time.Now().UnixNano(), r.seq, r.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Changes returns a run's changes in recording order.
func (s *Store) Changes(runID string) ([]Change, error) {
	rows, err := s.db.Query(`SELECT seq, kind, path, COALESCE(dest, ''), before, existed, created_dir, COALESCE(after_hash, '')
		FROM changes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c                   Change
			kind                string
			existed, createdDir int
		)
		if err := rows.Scan(&c.Seq, &kind, &c.Path, &c.Dest, &c.Before, &existed, &createdDir, &c.AfterHash); err != nil {
			return nil, err
		}
		c.Kind = ChangeKind(kind)
		c.Existed = existed != 0
		c.CreatedDir = createdDir != 0
		out = append(out, c)
	}
	return out, rows.Err()
}
