// Package nest turns flat modules into directory modules: folder/foo.ts
// becomes folder/foo/index.ts, which the esm rewriter then addresses as
// "./foo/index.js".
package nest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cesm/internal/logging"
)

// ErrDestinationExists is returned when a move would overwrite a file.
var ErrDestinationExists = errors.New("destination already exists")

// Move is one planned or applied file move.
type Move struct {
	From       string `json:"from"`
	To         string `json:"to"`
	CreatedDir bool   `json:"created_dir"`
}

// NormalizeExt adds the leading dot if it is missing.
func NormalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Plan lists the moves for every regular file directly inside folder whose
// name ends with ext. Files already named index<ext> are skipped.
func Plan(folder, ext string) ([]Move, error) {
	ext = NormalizeExt(ext)
	if ext == "" {
		return nil, fmt.Errorf("extension must not be empty")
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var moves []Move
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if stem == "" || stem == "index" {
			continue
		}
		moves = append(moves, Move{
			From: filepath.Join(folder, name),
			To:   filepath.Join(folder, stem, "index"+ext),
		})
	}

	sort.Slice(moves, func(i, j int) bool { return moves[i].From < moves[j].From })
	return moves, nil
}

// Apply performs planned moves in order. It stops at the first failure and
// returns the moves that did happen alongside the error.
func Apply(plans []Move, dryRun bool) ([]Move, error) {
	var applied []Move
	for _, m := range plans {
		if _, err := os.Lstat(m.To); err == nil {
			return applied, fmt.Errorf("%w: %s", ErrDestinationExists, m.To)
		} else if !os.IsNotExist(err) {
			return applied, fmt.Errorf("failed to check %s: %w", m.To, err)
		}

		dir := filepath.Dir(m.To)
		info, err := os.Stat(dir)
		switch {
		case err == nil && !info.IsDir():
			return applied, fmt.Errorf("%w: %s is not a directory", ErrDestinationExists, dir)
		case err != nil && !os.IsNotExist(err):
			return applied, fmt.Errorf("failed to check %s: %w", dir, err)
		case err != nil:
			m.CreatedDir = true
		}

		if dryRun {
			applied = append(applied, m)
			continue
		}

		if m.CreatedDir {
			if err := os.Mkdir(dir, 0755); err != nil {
				return applied, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		if err := os.Rename(m.From, m.To); err != nil {
			if m.CreatedDir {
				_ = os.Remove(dir)
			}
			return applied, fmt.Errorf("failed to move file: %w", err)
		}
		logging.Nest("moved %s -> %s", m.From, m.To)
		applied = append(applied, m)
	}
	return applied, nil
}

// Undo reverses an applied move, removing the directory it created when
// that directory is now empty.
func Undo(m Move) error {
	if _, err := os.Lstat(m.From); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, m.From)
	}
	if err := os.Rename(m.To, m.From); err != nil {
		return fmt.Errorf("failed to move file back: %w", err)
	}
	if m.CreatedDir {
		dir := filepath.Dir(m.To)
		if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
			logging.NestWarn("left non-empty directory %s: %v", dir, err)
		}
	}
	return nil
}
