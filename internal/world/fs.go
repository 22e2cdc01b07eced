package world

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cesm/internal/logging"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for glob patterns that cannot be parsed.
var ErrBadPattern = errors.New("bad glob pattern")

// AbsPattern anchors a relative pattern at root.
func AbsPattern(root, pattern string) string {
	if filepath.IsAbs(pattern) {
		return filepath.Clean(pattern)
	}
	return filepath.Join(root, pattern)
}

// ExpandPattern expands a glob (with ** support) into the regular files it
// matches, sorted and with ignored paths removed.
func ExpandPattern(root, pattern string, cfg ScannerConfig) ([]string, error) {
	full := AbsPattern(root, pattern)
	if !doublestar.ValidatePattern(filepath.ToSlash(full)) {
		return nil, fmt.Errorf("%w: %s", ErrBadPattern, pattern)
	}

	matches, err := doublestar.FilepathGlob(full)
	if err != nil {
		if errors.Is(err, doublestar.ErrBadPattern) {
			return nil, fmt.Errorf("%w: %s", ErrBadPattern, pattern)
		}
		return nil, fmt.Errorf("failed to expand %s: %w", pattern, err)
	}

	seen := make(map[string]bool, len(matches))
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true

		if rel, err := filepath.Rel(root, m); err == nil && !strings.HasPrefix(rel, "..") {
			if cfg.IsIgnored(rel) {
				logging.WorldDebug("ExpandPattern: ignoring %s", rel)
				continue
			}
		}

		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if cfg.MaxFileBytes > 0 && info.Size() > cfg.MaxFileBytes {
			logging.WorldDebug("ExpandPattern: skipping %s (%d bytes > %d)", m, info.Size(), cfg.MaxFileBytes)
			continue
		}
		files = append(files, m)
	}

	sort.Strings(files)
	logging.WorldDebug("ExpandPattern: %s matched %d files", pattern, len(files))
	return files, nil
}

// MatchPattern reports whether path matches an already-anchored pattern.
func MatchPattern(absPattern, path string) bool {
	ok, err := doublestar.PathMatch(absPattern, path)
	return err == nil && ok
}

// PatternBase returns the static directory prefix of an anchored pattern.
func PatternBase(absPattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(absPattern))
	return filepath.FromSlash(base)
}

// HashBytes returns the hex sha256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
