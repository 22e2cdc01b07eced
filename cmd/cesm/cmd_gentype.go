package main

import (
	"cesm/internal/gentype"
	"cesm/internal/journal"

	"github.com/spf13/cobra"
)

var (
	gentypeInput         string
	gentypeOutput        string
	gentypeTag           string
	gentypeContent       string
	gentypeExportPrivate bool
)

// gentypeCmd converts Rust type declarations to TypeScript
var gentypeCmd = &cobra.Command{
	Use:   "gentype",
	Short: "Generate TypeScript declarations from Rust types",
	Long: `Reads structs, enums and type aliases from a Rust file and writes
matching TypeScript declarations. Enums are emitted in serde's adjacently
tagged form ({ t: "Variant", c: payload }); #[serde(tag, content, rename,
skip)] attributes are honored.

Example:
  cesm gentype -i src/types.rs -o web/types.d.ts`,
	Args: cobra.NoArgs,
	RunE: runGentype,
}

func init() {
	gentypeCmd.Flags().StringVarP(&gentypeInput, "input", "i", "", "Rust file to read (required)")
	gentypeCmd.Flags().StringVarP(&gentypeOutput, "output", "o", "", "TypeScript file to write (required)")
	gentypeCmd.Flags().StringVar(&gentypeTag, "tag", "", "Default enum tag key (default: from config)")
	gentypeCmd.Flags().StringVar(&gentypeContent, "content", "", "Default enum content key (default: from config)")
	gentypeCmd.Flags().BoolVar(&gentypeExportPrivate, "export-private", false, "Export non-pub items too")
	gentypeCmd.MarkFlagRequired("input")
	gentypeCmd.MarkFlagRequired("output")
}

func runGentype(cmd *cobra.Command, args []string) error {
	ws, err := workspaceDir()
	if err != nil {
		return err
	}

	opts := gentype.EmitOptions{
		Tag:           cfg.Gentype.Tag,
		Content:       cfg.Gentype.Content,
		ExportPrivate: cfg.Gentype.ExportPrivate || gentypeExportPrivate,
	}
	if gentypeTag != "" {
		opts.Tag = gentypeTag
	}
	if gentypeContent != "" {
		opts.Content = gentypeContent
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	in := inWorkspace(ws, gentypeInput)
	out := inWorkspace(ws, gentypeOutput)
	res, err := gentype.Generate(ctx, in, out, opts)
	if err != nil {
		return err
	}

	runID := recordRun(ws, "gentype", []string{"-i", gentypeInput, "-o", gentypeOutput}, func(run *journal.Run) error {
		return run.RecordGenerate(res.Output, res.Before, res.Existed, res.After)
	})

	printer.Processed(displayPath(ws, res.Output))
	printer.Success("Generated %d declarations from %s", res.Decls, displayPath(ws, res.Input))
	if runID != "" {
		printer.Dim("Run %s (undo with: cesm revert %s)", shortID(runID), shortID(runID))
	}
	return nil
}
