package esm

import (
	"os"
	"path/filepath"
	"strings"

	"cesm/internal/logging"
)

// Candidate source extensions, in lookup order. The first five follow the
// order the migration has always used; jsx/mts/cts were added later.
var sourceExtensions = []string{".tsx", ".ts", ".js", ".mjs", ".cjs", ".jsx", ".mts", ".cts"}

// emittedExtension maps a source extension to what the compiler emits.
func emittedExtension(ext string) string {
	switch ext {
	case ".mjs", ".mts":
		return ".mjs"
	case ".cjs", ".cts":
		return ".cjs"
	}
	return ".js"
}

// Resolver decides the ESM form of a relative specifier by probing the
// filesystem next to the importing file.
type Resolver struct {
	// IsFile reports whether path is an existing regular file.
	IsFile func(path string) bool
}

// NewResolver returns a Resolver backed by os.Stat.
func NewResolver() *Resolver {
	return &Resolver{IsFile: isRegularFile}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsRelative reports whether spec is a relative module specifier.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Resolve returns the rewritten specifier for spec as seen from dir, and
// false when spec should be left alone: bare specifiers, specifiers that
// already name a file, and specifiers nothing on disk backs.
//
// Directory indexes win over sibling files, so "./a" with both a.ts and
// a/index.ts present becomes "./a/index.js".
func (r *Resolver) Resolve(dir, spec string) (string, bool) {
	if !IsRelative(spec) {
		return "", false
	}
	isFile := r.IsFile
	if isFile == nil {
		isFile = isRegularFile
	}

	if isFile(filepath.Join(dir, filepath.FromSlash(spec))) {
		return "", false
	}

	base := spec
	if len(base) > 1 {
		base = strings.TrimRight(base, "/")
	}
	target := filepath.Join(dir, filepath.FromSlash(base))

	for _, ext := range sourceExtensions {
		if isFile(filepath.Join(target, "index"+ext)) {
			out := base + "/index" + emittedExtension(ext)
			logging.ResolveDebug("%s: %s -> %s (directory index)", dir, spec, out)
			return out, true
		}
	}

	for _, ext := range sourceExtensions {
		if isFile(target + ext) {
			out := base + emittedExtension(ext)
			logging.ResolveDebug("%s: %s -> %s (file)", dir, spec, out)
			return out, true
		}
	}

	logging.ResolveDebug("%s: %s unresolved", dir, spec)
	return "", false
}
