package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cesm/cmd/cesm/ui"
	"cesm/internal/config"
	"cesm/internal/journal"
	"cesm/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration
	noJournal  bool
	noColor    bool

	cfg     *config.Config
	logger  *zap.Logger
	printer *ui.Printer
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cesm",
	Short: "cesm - move TypeScript projects to native ES modules",
	Long: `cesm rewrites extensionless relative imports into the explicit
specifiers Node's ESM loader requires, reshapes flat modules into
directory index modules, and generates TypeScript declarations from Rust
types.

Every run that changes files is journaled under .cesm/ and can be undone
with "cesm revert".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.cesm.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&noJournal, "no-journal", false, "Do not record this run in the journal")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(addjsCmd)
	rootCmd.AddCommand(nestCmd)
	rootCmd.AddCommand(gentypeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(revertCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.NewPrinter(os.Stderr, noColor).Error(err)
		os.Exit(1)
	}
}

// setup loads config, initializes file logging and builds the CLI logger.
func setup(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = filepath.Join(ws, config.FileName)
	}
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	if !cmd.Flags().Changed("timeout") {
		timeout = cfg.GetTimeout()
	}
	if noJournal {
		cfg.Journal.Enabled = false
	}

	if err := logging.Initialize(ws, cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if verbose || logging.IsDebugMode() {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	printer = ui.NewPrinter(cmd.OutOrStdout(), noColor)
	logging.Boot("cesm %s in %s (config %s)", cmd.Name(), ws, path)
	logging.BootDebug("workers=%d journal=%t timeout=%v", cfg.World.Workers, cfg.Journal.Enabled, timeout)
	logger.Debug("configuration loaded",
		zap.String("workspace", ws),
		zap.String("config", path),
		zap.Int("workers", cfg.World.Workers),
		zap.Bool("journal", cfg.Journal.Enabled),
		zap.Duration("timeout", timeout))
	return nil
}

// workspaceDir returns the absolute workspace directory.
func workspaceDir() (string, error) {
	ws := workspace
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		ws = cwd
	}
	return filepath.Abs(ws)
}

// inWorkspace anchors a relative path at the workspace.
func inWorkspace(ws, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ws, path)
}

// displayPath shortens paths inside the workspace for output.
func displayPath(ws, path string) string {
	if rel, err := filepath.Rel(ws, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// commandContext derives the command's context with the configured timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// openJournal opens the workspace journal, or returns nil when journaling is
// disabled.
func openJournal(ws string) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(cfg.JournalPath(ws))
}

// recordRun journals one run. Journal failures are reported as warnings;
// the files have already changed by the time this runs.
func recordRun(ws, command string, args []string, record func(*journal.Run) error) string {
	store, err := openJournal(ws)
	if err != nil {
		printer.Warn("Warning: journal unavailable: %v", err)
		logger.Warn("journal open failed", zap.Error(err))
		return ""
	}
	if store == nil {
		return ""
	}
	defer store.Close()

	run, err := store.Begin(command, args)
	if err == nil {
		err = record(run)
		if ferr := run.Finish(); err == nil {
			err = ferr
		}
	}
	if err != nil {
		printer.Warn("Warning: failed to journal run: %v", err)
		logger.Warn("journal write failed", zap.Error(err))
		return ""
	}
	if run.Count() == 0 {
		return ""
	}
	logger.Debug("run journaled", zap.String("run", run.ID), zap.Int("changes", run.Count()))
	return run.ID
}

// requireJournal opens the journal for commands that cannot work without it.
func requireJournal(ws string) (*journal.Store, error) {
	store, err := openJournal(ws)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("journal is disabled (journal.enabled or --no-journal)")
	}
	return store, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
