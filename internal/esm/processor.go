package esm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cesm/internal/logging"
	"cesm/internal/world"

	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of rewriting one file.
type FileResult struct {
	Path    string `json:"path"`
	Edits   []Edit `json:"edits,omitempty"`
	Changed bool   `json:"changed"`
	// Skipped is set for files without a JavaScript or TypeScript grammar.
	Skipped bool `json:"skipped,omitempty"`

	// Before and After hold the file contents when Changed is set; the
	// journal needs them to revert the run.
	Before []byte `json:"-"`
	After  []byte `json:"-"`
}

// Report summarizes a batch run.
type Report struct {
	Files     []FileResult `json:"files"`
	Processed int          `json:"processed"`
	Total     int          `json:"total"`
	DryRun    bool         `json:"dry_run"`
}

// Changed returns the results for files whose content changed.
func (r *Report) Changed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Changed {
			out = append(out, f)
		}
	}
	return out
}

// slowBatch is the duration after which a Run is logged as slow.
const slowBatch = 30 * time.Second

// Processor rewrites batches of files concurrently.
type Processor struct {
	Workers  int
	DryRun   bool
	Resolver *Resolver
}

// NewProcessor creates a Processor with an os-backed resolver.
func NewProcessor(workers int, dryRun bool) *Processor {
	return &Processor{
		Workers:  workers,
		DryRun:   dryRun,
		Resolver: NewResolver(),
	}
}

// ProcessFile rewrites a single file, writing it back unless DryRun is set
// or nothing changed. The file mode is preserved. Files in a language the
// rewriter does not parse are left alone and marked Skipped.
func (p *Processor) ProcessFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return res, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}

	out, edits, err := RewriteSource(ctx, path, content, p.resolver())
	if errors.Is(err, world.ErrUnsupportedLanguage) {
		logging.RewriteDebug("skipping %s: %v", path, err)
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if len(edits) == 0 {
		return res, nil
	}

	res.Edits = edits
	res.Changed = true
	res.Before = content
	res.After = out

	if p.DryRun {
		logging.RewriteDebug("dry-run: %s would get %d edits", path, len(edits))
		return res, nil
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return res, err
	}
	logging.Rewrite("rewrote %s (%d specifiers)", path, len(edits))
	return res, nil
}

func (p *Processor) resolver() *Resolver {
	if p.Resolver == nil {
		p.Resolver = NewResolver()
	}
	return p.Resolver
}

// Run processes paths with at most Workers files in flight. Results keep
// the order of paths. On the first error the remaining work is cancelled;
// the returned report still lists every file that completed, so changes
// already written can be journaled.
func (p *Processor) Run(ctx context.Context, paths []string) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryRewrite, fmt.Sprintf("rewrite %d files", len(paths)))
	defer timer.StopWithThreshold(slowBatch)

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	p.resolver()

	results := make([]FileResult, len(paths))
	done := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.ProcessFile(gctx, path)
			if err != nil {
				logging.RewriteError("failed to process %s: %v", path, err)
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}
	runErr := g.Wait()

	report := &Report{Total: len(paths), DryRun: p.DryRun}
	for i, res := range results {
		if !done[i] {
			continue
		}
		report.Files = append(report.Files, res)
		if res.Changed {
			report.Processed++
		}
	}
	return report, runErr
}
