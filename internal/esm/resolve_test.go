package esm

import (
	"testing"
)

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a/index.ts":       "",
		"src/a/hello_world.ts": "",
		"src/b.ts":             "",
		"src/both.ts":          "",
		"src/both/index.ts":    "",
		"src/comp.tsx":         "",
		"src/legacy.js":        "",
		"src/esm.mjs":          "",
		"src/cjs.cjs":          "",
		"src/mod.mts":          "",
		"src/common.cts":       "",
		"src/mdir/index.mjs":   "",
		"src/cdir/index.cts":   "",
		"src/index.ts":         "",
		"lib/util.ts":          "",
		"src/already.js":       "",
		"src/extless":          "",
	})
	dir := root + "/src"

	tests := []struct {
		spec   string
		want   string
		wantOK bool
	}{
		{"./a", "./a/index.js", true},
		{"./a/", "./a/index.js", true},
		{"./a/hello_world", "./a/hello_world.js", true},
		{"./b", "./b.js", true},
		{"./both", "./both/index.js", true}, // directory index wins
		{"./comp", "./comp.js", true},
		{"./legacy", "./legacy.js", true},
		{"./esm", "./esm.mjs", true},
		{"./cjs", "./cjs.cjs", true},
		{"./mod", "./mod.mjs", true},
		{"./common", "./common.cjs", true},
		{"./mdir", "./mdir/index.mjs", true},
		{"./cdir", "./cdir/index.cjs", true},
		{".", "./index.js", true},
		{"../lib/util", "../lib/util.js", true},
		{"./already.js", "", false},
		{"./a/index.js", "", false},
		{"./extless", "", false},
		{"./missing", "", false},
		{"react", "", false},
		{"node:fs", "", false},
		{"@scope/pkg/sub", "", false},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, ok := r.Resolve(dir, tt.spec)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.spec, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolver_CustomIsFile(t *testing.T) {
	r := &Resolver{IsFile: func(p string) bool { return p == "/virtual/x/index.ts" }}
	got, ok := r.Resolve("/virtual", "./x")
	if !ok || got != "./x/index.js" {
		t.Errorf("Resolve = (%q, %v)", got, ok)
	}
}

func TestIsRelative(t *testing.T) {
	for spec, want := range map[string]bool{
		".":       true,
		"..":      true,
		"./a":     true,
		"../a":    true,
		"a":       false,
		".a":      false,
		"/abs":    false,
		"..foo":   false,
		"node:fs": false,
	} {
		if got := IsRelative(spec); got != want {
			t.Errorf("IsRelative(%q) = %v, want %v", spec, got, want)
		}
	}
}
