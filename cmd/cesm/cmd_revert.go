package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var revertJSON bool

// revertCmd undoes a journaled run
var revertCmd = &cobra.Command{
	Use:   "revert <RUN-ID>",
	Short: "Undo the file changes of a journaled run",
	Long: `Restores every file a run changed, newest change first. RUN-ID may be
any unique prefix of the id shown by "cesm history".

Files edited after the run are left alone and reported as skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().BoolVar(&revertJSON, "json", false, "Print the result as JSON")
}

func runRevert(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}
	store, err := requireJournal(ws)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := store.Revert(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info("run reverted",
		zap.String("run", res.RunID),
		zap.Int("restored", len(res.Restored)),
		zap.Int("conflicts", len(res.Conflicts)))

	if revertJSON {
		return writeJSON(res)
	}
	for _, p := range res.Restored {
		printer.Info("Restored: %s", displayPath(ws, p))
	}
	for _, p := range res.Removed {
		printer.Info("Removed: %s", displayPath(ws, p))
	}
	for _, p := range res.MovedBack {
		printer.Info("Moved back: %s", displayPath(ws, p))
	}
	for _, c := range res.Conflicts {
		printer.Warn("Skipped: %s (%s)", displayPath(ws, c.Path), c.Reason)
	}

	undone := len(res.Restored) + len(res.Removed) + len(res.MovedBack)
	if len(res.Conflicts) > 0 {
		printer.Warn("Reverted run %s: %d changes undone, %d skipped", shortID(res.RunID), undone, len(res.Conflicts))
		return nil
	}
	printer.Success("Reverted run %s: %d changes undone", shortID(res.RunID), undone)
	return nil
}
