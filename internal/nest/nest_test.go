package nest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("export {};\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.ts", "a.ts", "index.ts", "notes.md", "c.test.ts"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.ts"), 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "sub", "deep.ts"))

	moves, err := Plan(dir, "ts")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []Move{
		{From: filepath.Join(dir, "a.ts"), To: filepath.Join(dir, "a", "index.ts")},
		{From: filepath.Join(dir, "b.ts"), To: filepath.Join(dir, "b", "index.ts")},
		{From: filepath.Join(dir, "c.test.ts"), To: filepath.Join(dir, "c.test", "index.ts")},
	}
	if diff := cmp.Diff(want, moves); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_Errors(t *testing.T) {
	if _, err := Plan(filepath.Join(t.TempDir(), "missing"), ".ts"); err == nil {
		t.Error("expected error for missing folder")
	}
	if _, err := Plan(t.TempDir(), " "); err == nil {
		t.Error("expected error for empty extension")
	}
}

func TestApplyAndUndo(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.ts"))
	touch(t, filepath.Join(dir, "b.ts"))
	touch(t, filepath.Join(dir, "b", "other.ts")) // b/ already exists

	moves, err := Plan(dir, ".ts")
	if err != nil {
		t.Fatal(err)
	}
	applied, err := Apply(moves, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(applied))
	}
	if !applied[0].CreatedDir || applied[1].CreatedDir {
		t.Errorf("CreatedDir flags wrong: %+v", applied)
	}
	for _, m := range applied {
		if _, err := os.Stat(m.To); err != nil {
			t.Errorf("missing moved file %s: %v", m.To, err)
		}
		if _, err := os.Stat(m.From); !os.IsNotExist(err) {
			t.Errorf("source %s still exists", m.From)
		}
	}

	for i := len(applied) - 1; i >= 0; i-- {
		if err := Undo(applied[i]); err != nil {
			t.Fatalf("Undo: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "a")); !os.IsNotExist(err) {
		t.Error("created directory a/ should be removed on undo")
	}
	if _, err := os.Stat(filepath.Join(dir, "b", "other.ts")); err != nil {
		t.Error("pre-existing directory b/ must survive undo")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.ts")); err != nil {
		t.Error("a.ts not restored")
	}
}

func TestApply_DestinationExists(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.ts"))
	touch(t, filepath.Join(dir, "z.ts"))
	touch(t, filepath.Join(dir, "z", "index.ts"))

	moves, err := Plan(dir, ".ts")
	if err != nil {
		t.Fatal(err)
	}
	applied, err := Apply(moves, false)
	if !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	if len(applied) != 1 || applied[0].From != filepath.Join(dir, "a.ts") {
		t.Errorf("expected only a.ts applied, got %+v", applied)
	}
	if _, err := os.Stat(filepath.Join(dir, "z.ts")); err != nil {
		t.Error("z.ts must be left in place")
	}
}

func TestApply_DryRun(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.ts"))

	moves, _ := Plan(dir, ".ts")
	applied, err := Apply(moves, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 || !applied[0].CreatedDir {
		t.Errorf("dry run plan wrong: %+v", applied)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.ts")); err != nil {
		t.Error("dry run moved the file")
	}
}
