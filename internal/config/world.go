package config

import "runtime"

// WorldConfig controls file discovery and concurrent processing.
type WorldConfig struct {
	// Workers caps concurrent file workers (tree-sitter parse + rewrite).
	Workers int `yaml:"workers" json:"workers,omitempty"`
	// IgnorePatterns skips matching paths/dirs (relative to workspace).
	IgnorePatterns []string `yaml:"ignore" json:"ignore,omitempty"`
	// MaxFileBytes skips files larger than this size. Zero disables the limit.
	MaxFileBytes int64 `yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`
}

// DefaultWorldConfig returns defaults for file discovery.
func DefaultWorldConfig() WorldConfig {
	workers := runtime.NumCPU()
	if workers > 20 {
		workers = 20
	}
	if workers < 4 {
		workers = 4
	}
	return WorldConfig{
		Workers: workers,
		IgnorePatterns: []string{
			".git",
			".cesm",
			"node_modules",
			"dist",
			"build",
			".next",
			"coverage",
			".turbo",
			".cache",
		},
		MaxFileBytes: 4 * 1024 * 1024,
	}
}
