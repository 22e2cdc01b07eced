package gentype

import (
	"context"
	"fmt"
	"os"

	"cesm/internal/logging"
)

// Result describes one Generate call. Before and Existed describe the output
// file prior to the write so the change can be journaled.
type Result struct {
	Input   string
	Output  string
	Decls   int
	Before  []byte
	Existed bool
	After   []byte
}

// Generate reads a Rust file, converts its declarations and writes the
// TypeScript output with mode 0644.
func Generate(ctx context.Context, in, out string, opts EmitOptions) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryGentype, "generate "+in)
	defer timer.Stop()

	src, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	mod, err := ParseRust(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}

	res := &Result{Input: in, Output: out, Decls: len(mod.Decls), After: Emit(mod, opts)}
	before, err := os.ReadFile(out)
	switch {
	case err == nil:
		res.Before, res.Existed = before, true
		logging.Gentype("overwriting %s", out)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read existing output: %w", err)
	}

	if err := os.WriteFile(out, res.After, 0644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	logging.Get(logging.CategoryGentype).StructuredLog("info", "generated declarations", map[string]interface{}{
		"input":   in,
		"output":  out,
		"decls":   res.Decls,
		"existed": res.Existed,
	})
	return res, nil
}
