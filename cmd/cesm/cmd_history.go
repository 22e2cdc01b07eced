package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

// historyCmd lists journaled runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}
	store, err := requireJournal(ws)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		printer.Warn("No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := ""
		if r.Reverted {
			status = "reverted"
		} else if r.FinishedAt.IsZero() {
			status = "incomplete"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " ")),
			fmt.Sprint(r.ChangeCount),
			status,
		})
	}
	printer.Table([]string{"RUN", "STARTED", "COMMAND", "CHANGES", "STATUS"}, rows)
	return nil
}
