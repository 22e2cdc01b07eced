package world

import (
	"path"
	"path/filepath"
	"strings"

	"cesm/internal/config"
)

// ScannerConfig controls file discovery scope and worker counts.
type ScannerConfig struct {
	// MaxConcurrency limits concurrent file workers.
	MaxConcurrency int
	// IgnorePatterns skips matching paths/dirs (relative to workspace).
	// Supports simple dir names (e.g., "node_modules") and glob patterns (e.g., "vendor/*").
	IgnorePatterns []string
	// MaxFileBytes skips files larger than this size. Zero disables the limit.
	MaxFileBytes int64
}

// DefaultScannerConfig returns the defaults from config.DefaultWorldConfig.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfigFrom(config.DefaultWorldConfig())
}

// ScannerConfigFrom converts the YAML world section into a ScannerConfig.
func ScannerConfigFrom(wc config.WorldConfig) ScannerConfig {
	workers := wc.Workers
	if workers <= 0 {
		workers = config.DefaultWorldConfig().Workers
	}
	return ScannerConfig{
		MaxConcurrency: workers,
		IgnorePatterns: append([]string(nil), wc.IgnorePatterns...),
		MaxFileBytes:   wc.MaxFileBytes,
	}
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a relative path should be ignored.
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		// Glob pattern
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			// Handle directory globs like "vendor/*"
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		// Simple dir/file name
		if name == p {
			return true
		}
		// Prefix match for nested paths
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// IsIgnored reports whether rel, or any directory above it, matches an
// ignore pattern.
func (c ScannerConfig) IsIgnored(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	for i := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		if isIgnoredRel(prefix, segments[i], c.IgnorePatterns) {
			return true
		}
	}
	return false
}
