package main

import (
	"cesm/internal/journal"
	"cesm/internal/nest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	nestFolder string
	nestExt    string
	nestDryRun bool
)

// nestCmd moves flat modules into directory index modules
var nestCmd = &cobra.Command{
	Use:   "nest",
	Short: "Move folder/foo.ext to folder/foo/index.ext",
	Long: `Turns every flat module directly inside --folder into a directory
module, so "./foo" imports resolve to "./foo/index.js" after addjs.
Files already named index.ext are left alone. Subdirectories are not
descended into.

Example:
  cesm nest --folder src/components --ext .tsx`,
	Args: cobra.NoArgs,
	RunE: runNest,
}

func init() {
	nestCmd.Flags().StringVar(&nestFolder, "folder", "", "Folder whose files are nested (required)")
	nestCmd.Flags().StringVar(&nestExt, "ext", "", "Extension of files to nest, e.g. .ts (required)")
	nestCmd.Flags().BoolVar(&nestDryRun, "dry-run", false, "Show planned moves without applying them")
	nestCmd.MarkFlagRequired("folder")
	nestCmd.MarkFlagRequired("ext")
}

func runNest(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}
	folder := inWorkspace(ws, nestFolder)

	plans, err := nest.Plan(folder, nestExt)
	if err != nil {
		return err
	}
	logger.Debug("nest planned", zap.String("folder", folder), zap.Int("moves", len(plans)))

	applied, applyErr := nest.Apply(plans, nestDryRun)

	var runID string
	if !nestDryRun && len(applied) > 0 {
		runID = recordRun(ws, "nest", []string{"--folder", nestFolder, "--ext", nestExt}, func(run *journal.Run) error {
			for _, m := range applied {
				if err := run.RecordMove(m); err != nil {
					return err
				}
			}
			return nil
		})
	}

	verb := "Moved"
	if nestDryRun {
		verb = "Would move"
	}
	for _, m := range applied {
		printer.Info("%s: %s -> %s", verb, displayPath(ws, m.From), displayPath(ws, m.To))
	}
	switch {
	case len(applied) == 0 && applyErr == nil:
		printer.Warn("No files were moved.")
	case nestDryRun:
		printer.Warn("%d files would be moved", len(applied))
	case len(applied) == 1:
		printer.Success("Moved 1 file successfully")
	default:
		printer.Success("Moved %d files successfully", len(applied))
	}
	if runID != "" {
		printer.Dim("Run %s (undo with: cesm revert %s)", shortID(runID), shortID(runID))
	}
	return applyErr
}
