package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Processed("src/index.ts")
	p.Success("Processed %d files successfully", 2)
	p.Warn("No files were modified.")
	p.Error(errors.New("boom"))

	want := "Processed: src/index.ts\n" +
		"Processed 2 files successfully\n" +
		"No files were modified.\n" +
		"Error: boom\n"
	if got := buf.String(); got != want {
		t.Errorf("output mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestPrinter_NonTerminalHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.Processed("a.ts")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected no ANSI escapes for a non-terminal writer, got %q", buf.String())
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.Table([]string{"RUN", "COMMAND"}, [][]string{{"1234abcd", "addjs"}})

	out := buf.String()
	for _, want := range []string{"RUN", "COMMAND", "1234abcd", "addjs"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
