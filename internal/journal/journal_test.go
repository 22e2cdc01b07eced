package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cesm/internal/nest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".cesm", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestOpen_MigratesSchema(t *testing.T) {
	s := openStore(t)

	var version int
	var dirty bool
	require.NoError(t, s.db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 2, version)
	assert.False(t, dirty)

	again, err := Open(s.Path())
	require.NoError(t, err, "reopening a migrated journal is a no-op")
	require.NoError(t, again.Close())
}

func TestBeginFinishList(t *testing.T) {
	s := openStore(t)

	first, err := s.Begin("addjs", []string{"src/**/*.ts"})
	require.NoError(t, err)
	require.NoError(t, first.RecordRewrite("/tmp/a.ts", []byte("a"), []byte("b")))
	require.NoError(t, first.Finish())

	second, err := s.Begin("gentype", []string{"-i", "types.rs"})
	require.NoError(t, err)
	require.NoError(t, second.RecordGenerate("/tmp/types.d.ts", nil, false, []byte("x")))
	require.NoError(t, second.RecordGenerate("/tmp/other.d.ts", nil, false, []byte("y")))
	require.NoError(t, second.Finish())

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, "gentype", runs[0].Command)
	assert.Equal(t, []string{"-i", "types.rs"}, runs[0].Args)
	assert.Equal(t, 2, runs[0].ChangeCount)
	assert.False(t, runs[0].FinishedAt.IsZero())
	assert.Equal(t, 1, runs[1].ChangeCount)

	limited, err := s.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinish_EmptyRunIsDropped(t *testing.T) {
	s := openStore(t)
	run, err := s.Begin("addjs", nil)
	require.NoError(t, err)
	require.NoError(t, run.Finish())

	runs, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGet_Prefix(t *testing.T) {
	s := openStore(t)
	run, err := s.Begin("addjs", nil)
	require.NoError(t, err)
	require.NoError(t, run.RecordRewrite("/tmp/a.ts", []byte("a"), []byte("b")))
	require.NoError(t, run.Finish())

	got, err := s.Get(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = s.Get("zzzz")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	_, err = s.Get("")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGet_Ambiguous(t *testing.T) {
	s := openStore(t)
	_, err := s.db.Exec(`INSERT INTO runs (id, command, args, started_at) VALUES ('abc1', 'addjs', '[]', 1), ('abc2', 'addjs', '[]', 2)`)
	require.NoError(t, err)

	_, err = s.Get("abc")
	assert.True(t, errors.Is(err, ErrAmbiguousRun))
	r, err := s.Get("abc2")
	require.NoError(t, err)
	assert.Equal(t, "abc2", r.ID)
}

func TestRevert_RewriteAndGenerate(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	rewritten := filepath.Join(dir, "index.ts")
	replaced := filepath.Join(dir, "types.d.ts")
	created := filepath.Join(dir, "new.d.ts")
	write(t, rewritten, `import "./a/index.js";`)
	write(t, replaced, "new types")
	write(t, created, "fresh")

	run, err := s.Begin("mixed", nil)
	require.NoError(t, err)
	require.NoError(t, run.RecordRewrite(rewritten, []byte(`import "./a";`), []byte(`import "./a/index.js";`)))
	require.NoError(t, run.RecordGenerate(replaced, []byte("old types"), true, []byte("new types")))
	require.NoError(t, run.RecordGenerate(created, nil, false, []byte("fresh")))
	require.NoError(t, run.Finish())

	res, err := s.Revert(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.ElementsMatch(t, []string{rewritten, replaced}, res.Restored)
	assert.Equal(t, []string{created}, res.Removed)

	assert.Equal(t, `import "./a";`, read(t, rewritten))
	assert.Equal(t, "old types", read(t, replaced))
	_, err = os.Stat(created)
	assert.True(t, os.IsNotExist(err))

	got, err := s.Get(run.ID)
	require.NoError(t, err)
	assert.True(t, got.Reverted)

	_, err = s.Revert(context.Background(), run.ID)
	assert.True(t, errors.Is(err, ErrAlreadyReverted))
}

func TestRevert_ConflictLeavesFileAlone(t *testing.T) {
	s := openStore(t)
	path := filepath.Join(t.TempDir(), "index.ts")
	write(t, path, "edited by hand")

	run, err := s.Begin("addjs", nil)
	require.NoError(t, err)
	require.NoError(t, run.RecordRewrite(path, []byte("before"), []byte("after")))
	require.NoError(t, run.RecordRewrite(filepath.Join(filepath.Dir(path), "gone.ts"), []byte("x"), []byte("y")))
	require.NoError(t, run.Finish())

	res, err := s.Revert(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Restored)
	require.Len(t, res.Conflicts, 2)
	assert.Equal(t, "edited by hand", read(t, path))
}

func TestRevert_Moves(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.ts"), "export const a = 1;\n")

	plans, err := nest.Plan(dir, ".ts")
	require.NoError(t, err)
	applied, err := nest.Apply(plans, false)
	require.NoError(t, err)

	run, err := s.Begin("nest", []string{"--folder", dir, "--ext", "ts"})
	require.NoError(t, err)
	for _, m := range applied {
		require.NoError(t, run.RecordMove(m))
	}
	require.NoError(t, run.Finish())

	changes, err := s.Changes(run.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, KindMove, changes[0].Kind)
	assert.True(t, changes[0].CreatedDir)

	res, err := s.Revert(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.ts")}, res.MovedBack)
	assert.Equal(t, "export const a = 1;\n", read(t, filepath.Join(dir, "a.ts")))
	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))
}

func TestRevert_Cancelled(t *testing.T) {
	s := openStore(t)
	run, err := s.Begin("addjs", nil)
	require.NoError(t, err)
	require.NoError(t, run.RecordRewrite("/nonexistent/a.ts", []byte("a"), []byte("b")))
	require.NoError(t, run.Finish())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Revert(ctx, run.ID)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := s.Get(run.ID)
	require.NoError(t, err)
	assert.False(t, got.Reverted)
}
