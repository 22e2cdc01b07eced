package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"cesm/internal/diff"
	"cesm/internal/esm"
	"cesm/internal/journal"
	"cesm/internal/world"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errCheckFailed is returned by "addjs --check" when files need rewriting.
var errCheckFailed = errors.New("files need ESM specifiers")

var (
	addjsDryRun  bool
	addjsCheck   bool
	addjsJSON    bool
	addjsWatch   bool
	addjsWorkers int
	addjsDiff    bool
)

// addjsCmd rewrites relative import specifiers
var addjsCmd = &cobra.Command{
	Use:   "addjs <PATTERN>",
	Short: "Add explicit .js / index.js extensions to relative imports",
	Long: `Rewrites relative import, export-from and dynamic import() specifiers
in every file matching PATTERN so Node's ESM loader can resolve them:

  import { a } from "./a"      ->  "./a/index.js"  (when ./a/index.ts exists)
  import { b } from "./b"      ->  "./b.js"        (when ./b.ts exists)

PATTERN is a glob relative to the workspace and supports **.

Examples:
  cesm addjs "src/**/*.ts"
  cesm addjs "src/**/*.{ts,tsx}" --check
  cesm addjs "src/**/*.ts" --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runAddJS,
}

func init() {
	addjsCmd.Flags().BoolVar(&addjsDryRun, "dry-run", false, "Show what would change without writing")
	addjsCmd.Flags().BoolVar(&addjsCheck, "check", false, "Exit non-zero if any file needs rewriting (implies --dry-run)")
	addjsCmd.Flags().BoolVar(&addjsJSON, "json", false, "Print the report as JSON")
	addjsCmd.Flags().BoolVar(&addjsWatch, "watch", false, "Keep running and rewrite files as they are saved")
	addjsCmd.Flags().BoolVar(&addjsDiff, "diff", false, "Print a unified diff of every changed file")
	addjsCmd.Flags().IntVar(&addjsWorkers, "workers", 0, "Files processed in parallel (default: from config)")
}

// addjsOutput is the --json document.
type addjsOutput struct {
	*esm.Report
	RunID string `json:"run_id,omitempty"`
}

func runAddJS(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}
	pattern := args[0]
	dryRun := addjsDryRun || addjsCheck
	if addjsWatch && dryRun {
		return fmt.Errorf("--watch cannot be combined with --dry-run or --check")
	}

	scanCfg := world.ScannerConfigFrom(cfg.World)
	if addjsWorkers > 0 {
		scanCfg.MaxConcurrency = addjsWorkers
	}
	if !addjsJSON {
		warnPackageType(ws)
	}

	paths, err := world.ExpandPattern(ws, pattern, scanCfg)
	if err != nil {
		return err
	}
	logger.Debug("pattern expanded", zap.String("pattern", pattern), zap.Int("files", len(paths)))

	ctx, cancel := commandContext(cmd)
	defer cancel()

	proc := esm.NewProcessor(scanCfg.MaxConcurrency, dryRun)
	report, runErr := proc.Run(ctx, paths)

	var runID string
	if !dryRun && report != nil && report.Processed > 0 {
		runID = recordRun(ws, "addjs", args, func(run *journal.Run) error {
			for _, f := range report.Changed() {
				if err := run.RecordRewrite(f.Path, f.Before, f.After); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if addjsJSON {
		if err := writeJSON(addjsOutput{Report: report, RunID: runID}); err != nil {
			return err
		}
	} else {
		printReport(ws, report, runID)
	}

	if runErr != nil {
		return runErr
	}
	if addjsCheck && report.Processed > 0 {
		return fmt.Errorf("%w: %d of %d files", errCheckFailed, report.Processed, report.Total)
	}
	if addjsWatch {
		return watchAddJS(cmd, ws, pattern, scanCfg, proc.Resolver)
	}
	return nil
}

func printReport(ws string, report *esm.Report, runID string) {
	if report == nil {
		return
	}
	for _, f := range report.Changed() {
		if report.DryRun {
			printer.Info("Would process: %s", displayPath(ws, f.Path))
			for _, e := range f.Edits {
				printer.Dim("  %d: %s -> %s", e.Specifier.Line, e.Specifier.Value, e.Replacement)
			}
		} else {
			printer.Processed(displayPath(ws, f.Path))
		}
		if addjsDiff {
			printer.Diff(diff.Compute(filepath.ToSlash(displayPath(ws, f.Path)), f.Before, f.After, diff.DefaultContext).Unified())
		}
	}

	switch {
	case report.DryRun && report.Processed == 0:
		printer.Success("All %d files already use ESM specifiers", report.Total)
	case report.DryRun && report.Processed == 1:
		printer.Warn("1 file would be modified")
	case report.DryRun:
		printer.Warn("%d files would be modified", report.Processed)
	default:
		printSummary(report.Processed)
	}
	if runID != "" {
		printer.Dim("Run %s (undo with: cesm revert %s)", shortID(runID), shortID(runID))
	}
}

func printSummary(n int) {
	switch n {
	case 0:
		printer.Warn("No files were modified.")
	case 1:
		printer.Success("Processed 1 file successfully")
	default:
		printer.Success("Processed %d files successfully", n)
	}
}

// warnPackageType warns when the nearest package.json does not opt into ESM.
func warnPackageType(ws string) {
	info, err := esm.FindPackageJSON(ws)
	switch {
	case errors.Is(err, esm.ErrNoPackageJSON):
		return
	case err != nil:
		logger.Debug("package.json check failed", zap.Error(err))
		return
	}
	if !info.IsModule() {
		printer.Warn(`Warning: %s does not set "type": "module"; Node will load .js output as CommonJS`, displayPath(ws, info.Path))
	}
	if info.AllowsPreESMNode() {
		printer.Warn(`Warning: engines.node %q admits Node releases without ES module support`, info.NodeEngine)
	}
}

func watchAddJS(cmd *cobra.Command, ws, pattern string, scanCfg world.ScannerConfig, r *esm.Resolver) error {
	w, err := esm.NewWatcher(ws, pattern, scanCfg, r)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	w.OnResult = func(f esm.FileResult) {
		printer.Processed(displayPath(ws, f.Path))
		recordRun(ws, "addjs", []string{pattern, "--watch"}, func(run *journal.Run) error {
			return run.RecordRewrite(f.Path, f.Before, f.After)
		})
	}
	w.OnError = func(path string, err error) {
		printer.Error(fmt.Errorf("%s: %w", displayPath(ws, path), err))
	}

	// watch mode runs until interrupted, not until the command timeout
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	printer.Dim("Watching %s (Ctrl+C to stop)", pattern)
	return w.Run(ctx)
}

func writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(printer.Writer(), string(data))
	return err
}
