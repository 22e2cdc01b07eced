package journal

import (
	"context"
	"fmt"
	"os"

	"cesm/internal/logging"
	"cesm/internal/nest"
	"cesm/internal/world"
)

// Conflict is a change Revert left alone.
type Conflict struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RevertResult lists what Revert did.
type RevertResult struct {
	RunID     string     `json:"run_id"`
	Restored  []string   `json:"restored"`
	Removed   []string   `json:"removed"`
	MovedBack []string   `json:"moved_back"`
	Conflicts []Conflict `json:"conflicts"`
}

// Revert undoes a run's changes newest first. Files modified after the run
// are reported as conflicts and not touched. The run is marked reverted even
// when conflicts remain.
func (s *Store) Revert(ctx context.Context, id string) (*RevertResult, error) {
	run, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if run.Reverted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReverted, run.ID)
	}
	changes, err := s.Changes(run.ID)
	if err != nil {
		return nil, err
	}

	res := &RevertResult{RunID: run.ID}
	for i := len(changes) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c := changes[i]
		switch c.Kind {
		case KindMove:
			m := nest.Move{From: c.Path, To: c.Dest, CreatedDir: c.CreatedDir}
			if err := nest.Undo(m); err != nil {
				res.Conflicts = append(res.Conflicts, Conflict{Path: c.Dest, Reason: err.Error()})
				continue
			}
			res.MovedBack = append(res.MovedBack, c.Path)
		case KindRewrite, KindGenerate:
			s.revertContent(c, res)
		default:
			res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: "unknown change kind " + string(c.Kind)})
		}
	}

	s.mu.Lock()
	_, err = s.db.Exec(`UPDATE runs SET reverted = 1 WHERE id = ?`, run.ID)
	s.mu.Unlock()
	if err != nil {
		return res, fmt.Errorf("failed to mark run reverted: %w", err)
	}
	logging.Journal("reverted run %s: %d restored, %d removed, %d moved back, %d conflicts",
		run.ID, len(res.Restored), len(res.Removed), len(res.MovedBack), len(res.Conflicts))
	return res, nil
}

func (s *Store) revertContent(c Change, res *RevertResult) {
	info, err := os.Stat(c.Path)
	if err != nil {
		res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: "file no longer exists"})
		return
	}
	hash, err := world.HashFile(c.Path)
	if err != nil {
		res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: err.Error()})
		return
	}
	if hash != c.AfterHash {
		logging.JournalWarn("skipping %s: modified since run", c.Path)
		res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: "modified since run"})
		return
	}

	if !c.Existed {
		if err := os.Remove(c.Path); err != nil {
			res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: err.Error()})
			return
		}
		res.Removed = append(res.Removed, c.Path)
		return
	}
	if err := os.WriteFile(c.Path, c.Before, info.Mode().Perm()); err != nil {
		res.Conflicts = append(res.Conflicts, Conflict{Path: c.Path, Reason: err.Error()})
		return
	}
	res.Restored = append(res.Restored, c.Path)
}
