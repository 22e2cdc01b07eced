package esm

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cesm/internal/logging"
	"cesm/internal/world"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs the rewrite on files matching a pattern as they are
// created or saved.
type Watcher struct {
	root     string
	pattern  string // anchored at root
	scanner  world.ScannerConfig
	resolver *Resolver
	debounce time.Duration

	// OnResult is called after every file that changed on disk.
	OnResult func(FileResult)
	// OnError is called for per-file failures; the watcher keeps running.
	OnError func(path string, err error)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
	written map[string]string // path -> hash of the content we last wrote
}

// NewWatcher creates a watcher for pattern, resolved against root.
func NewWatcher(root, pattern string, cfg world.ScannerConfig, r *Resolver) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = NewResolver()
	}
	return &Watcher{
		root:     root,
		pattern:  world.AbsPattern(root, pattern),
		scanner:  cfg,
		resolver: r,
		debounce: 250 * time.Millisecond,
		watcher:  fw,
		pending:  make(map[string]time.Time),
		written:  make(map[string]string),
	}, nil
}

// SetDebounce changes how long a file must be quiet before it is processed.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	base := world.PatternBase(w.pattern)
	if err := w.addTree(base, false); err != nil {
		return err
	}
	logging.Watch("watching %s (pattern %s)", base, w.pattern)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("watch stopped: %v", ctx.Err())
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WatchError("fsnotify error: %v", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// addTree watches dir and every non-ignored directory below it. With queue
// set, matching files already present are scheduled for processing, which
// covers directories moved into the tree and files written before the
// watch was added.
func (w *Watcher) addTree(dir string, queue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if queue && d.Type().IsRegular() {
				w.enqueue(path)
			}
			return nil
		}
		if rel, err := filepath.Rel(w.root, path); err == nil && w.scanner.IsIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		logging.WatchDebug("added watch on %s", path)
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name, true); err != nil {
				logging.WatchError("failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if w.enqueue(event.Name) {
		logging.WatchDebug("%s event for %s", event.Op, event.Name)
	}
}

// enqueue schedules path if it matches the pattern and is not ignored.
func (w *Watcher) enqueue(path string) bool {
	if !world.MatchPattern(w.pattern, path) {
		return false
	}
	if rel, err := filepath.Rel(w.root, path); err == nil && w.scanner.IsIgnored(rel) {
		return false
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
	return true
}

// flush processes every pending file that has been quiet for the debounce
// interval.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.fail(path, err)
		return
	}

	hash := world.HashBytes(content)
	w.mu.Lock()
	ours := w.written[path] == hash
	w.mu.Unlock()
	if ours {
		return
	}

	out, edits, err := RewriteSource(ctx, path, content, w.resolver)
	if errors.Is(err, world.ErrUnsupportedLanguage) {
		logging.WatchDebug("skipping %s: %v", path, err)
		return
	}
	if err != nil {
		w.fail(path, err)
		return
	}
	if len(edits) == 0 {
		return
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		w.fail(path, err)
		return
	}

	w.mu.Lock()
	w.written[path] = world.HashBytes(out)
	w.mu.Unlock()

	logging.Watch("rewrote %s (%d specifiers)", path, len(edits))
	if w.OnResult != nil {
		w.OnResult(FileResult{Path: path, Edits: edits, Changed: true, Before: content, After: out})
	}
}

func (w *Watcher) fail(path string, err error) {
	logging.WatchError("failed to process %s: %v", path, err)
	if w.OnError != nil {
		w.OnError(path, err)
	}
}
