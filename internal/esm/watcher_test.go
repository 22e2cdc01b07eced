package esm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cesm/internal/world"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_RewritesSavedFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a/index.ts": ""})

	w, err := NewWatcher(root, "src/**/*.ts", world.DefaultScannerConfig(), nil)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	var mu sync.Mutex
	var results []FileResult
	w.OnResult = func(r FileResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "src", "main.ts")
	require.NoError(t, os.WriteFile(path, []byte("import { x } from './a';\n"), 0644))

	want := "import { x } from './a/index.js';\n"
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && string(data) == want {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, want, readFile(t, path))

	// Let the self-triggered write event drain; it must not produce a
	// second result.
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	require.Equal(t, path, results[0].Path)
}

func TestWatcher_RewritesDirectoryMovedIn(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.ts":               "export const x = 1;\n",
		"staging/feat/main.ts":   "import { x } from '../a';\n",
		"staging/feat/deep/b.ts": "import { x } from '../../a';\n",
	})

	w, err := NewWatcher(root, "src/**/*.ts", world.DefaultScannerConfig(), nil)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Rename(filepath.Join(root, "staging", "feat"), filepath.Join(root, "src", "feat")))

	want := map[string]string{
		filepath.Join(root, "src", "feat", "main.ts"):      "import { x } from '../a.js';\n",
		filepath.Join(root, "src", "feat", "deep", "b.ts"): "import { x } from '../../a.js';\n",
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		pending := 0
		for path, content := range want {
			if data, err := os.ReadFile(path); err != nil || string(data) != content {
				pending++
			}
		}
		if pending == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	for path, content := range want {
		require.Equal(t, content, readFile(t, path))
	}
}

func TestWatcher_IgnoresFilesWithoutGrammar(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/a.ts": ""})

	w, err := NewWatcher(root, "src/**/*", world.DefaultScannerConfig(), nil)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	var mu sync.Mutex
	var failed []string
	w.OnError = func(path string, err error) {
		mu.Lock()
		failed = append(failed, path)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "data.json"), []byte(`{"a": "./a"}`), 0644))
	main := filepath.Join(root, "src", "main.ts")
	require.NoError(t, os.WriteFile(main, []byte("import './a';\n"), 0644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(main); err == nil && string(data) == "import './a.js';\n" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, "import './a.js';\n", readFile(t, main))

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, failed)
}

func TestWatcher_MissingBaseDir(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, "nope/**/*.ts", world.DefaultScannerConfig(), nil)
	require.NoError(t, err)

	require.Error(t, w.Run(context.Background()))
}
