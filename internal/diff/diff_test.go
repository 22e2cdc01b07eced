package diff

import (
	"fmt"
	"strings"
	"testing"
)

func numbered(n int, change map[int]string) []byte {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := change[i]; ok {
			b.WriteString(s)
		} else {
			fmt.Fprintf(&b, "line%d", i)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestUnified_ImportRewrite(t *testing.T) {
	before := []byte("import { a } from \"./a\";\nconst x = 1;\n")
	after := []byte("import { a } from \"./a/index.js\";\nconst x = 1;\n")

	got := Compute("src/index.ts", before, after, DefaultContext).Unified()
	want := "--- a/src/index.ts\n" +
		"+++ b/src/index.ts\n" +
		"@@ -1,2 +1,2 @@\n" +
		"-import { a } from \"./a\";\n" +
		"+import { a } from \"./a/index.js\";\n" +
		" const x = 1;\n"
	if got != want {
		t.Errorf("unified diff mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestCompute_SeparateHunks(t *testing.T) {
	before := numbered(20, nil)
	after := numbered(20, map[int]string{1: "first", 20: "last"})

	d := Compute("f.ts", before, after, DefaultContext)
	if len(d.Hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(d.Hunks))
	}
	h0, h1 := d.Hunks[0], d.Hunks[1]
	if h0.OldStart != 1 || h0.OldCount != 4 || h0.NewStart != 1 || h0.NewCount != 4 {
		t.Errorf("first hunk header wrong: %+v", h0)
	}
	if h1.OldStart != 17 || h1.OldCount != 4 || h1.NewStart != 17 || h1.NewCount != 4 {
		t.Errorf("second hunk header wrong: %+v", h1)
	}
	if !strings.Contains(d.Unified(), "@@ -17,4 +17,4 @@\n line17\n") {
		t.Errorf("unexpected unified output:\n%s", d.Unified())
	}
}

func TestCompute_MergesNearbyChanges(t *testing.T) {
	before := numbered(10, nil)
	after := numbered(10, map[int]string{1: "one", 5: "five"})

	d := Compute("f.ts", before, after, DefaultContext)
	if len(d.Hunks) != 1 {
		t.Fatalf("expected 1 merged hunk, got %d", len(d.Hunks))
	}
	if h := d.Hunks[0]; h.OldCount != 8 || h.NewCount != 8 {
		t.Errorf("merged hunk counts wrong: %+v", h)
	}
}

func TestCompute_Identical(t *testing.T) {
	d := Compute("f.ts", []byte("same\n"), []byte("same\n"), DefaultContext)
	if !d.Empty() {
		t.Errorf("expected no hunks, got %d", len(d.Hunks))
	}
	if d.Unified() != "" {
		t.Error("identical content should render nothing")
	}
}

func TestCompute_ZeroContext(t *testing.T) {
	before := numbered(5, nil)
	after := numbered(5, map[int]string{3: "three"})

	d := Compute("f.ts", before, after, 0)
	if len(d.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(d.Hunks))
	}
	if got := d.Unified(); !strings.Contains(got, "@@ -3 +3 @@\n-line3\n+three\n") {
		t.Errorf("unexpected output:\n%s", got)
	}
}
