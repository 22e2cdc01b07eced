// Package ui renders cesm's terminal output. Colors follow the classic ANSI
// bright palette and disappear when the writer is not a terminal, when
// NO_COLOR is set, or when the caller asks for plain output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Cyan   = lipgloss.Color("14")
	Green  = lipgloss.Color("10")
	Yellow = lipgloss.Color("11")
	Red    = lipgloss.Color("9")
	Gray   = lipgloss.Color("8")
)

// Printer writes styled lines to one writer.
type Printer struct {
	w io.Writer

	processed lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	failure   lipgloss.Style
	dim       lipgloss.Style
	header    lipgloss.Style
}

// NewPrinter creates a Printer for w. noColor forces plain text.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:         w,
		processed: r.NewStyle(),
		success:   r.NewStyle(),
		warning:   r.NewStyle(),
		failure:   r.NewStyle(),
		dim:       r.NewStyle(),
		header:    r.NewStyle(),
	}
	if noColor || os.Getenv("NO_COLOR") != "" {
		return p
	}
	p.processed = p.processed.Foreground(Cyan)
	p.success = p.success.Foreground(Green)
	p.warning = p.warning.Foreground(Yellow)
	p.failure = p.failure.Foreground(Red)
	p.dim = p.dim.Foreground(Gray)
	p.header = p.header.Bold(true)
	return p
}

// Writer returns the underlying writer, for JSON output.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) line(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(p.w, style.Render(fmt.Sprintf(format, args...)))
}

// Processed prints "Processed: <path>".
func (p *Printer) Processed(path string) {
	p.line(p.processed, "Processed: %s", path)
}

// Info prints an accent-colored line.
func (p *Printer) Info(format string, args ...interface{}) {
	p.line(p.processed, format, args...)
}

// Success prints a green line.
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(p.success, format, args...)
}

// Warn prints a yellow line.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.line(p.warning, format, args...)
}

// Error prints "Error: <msg>" in red.
func (p *Printer) Error(err error) {
	p.line(p.failure, "Error: %v", err)
}

// Dim prints a muted detail line.
func (p *Printer) Dim(format string, args ...interface{}) {
	p.line(p.dim, format, args...)
}

// Diff prints a unified diff, coloring added and removed lines.
func (p *Printer) Diff(unified string) {
	for _, line := range strings.Split(strings.TrimSuffix(unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			p.line(p.header, "%s", line)
		case strings.HasPrefix(line, "@@"):
			p.line(p.processed, "%s", line)
		case strings.HasPrefix(line, "+"):
			p.line(p.success, "%s", line)
		case strings.HasPrefix(line, "-"):
			p.line(p.failure, "%s", line)
		default:
			fmt.Fprintln(p.w, line)
		}
	}
}

// Table renders rows under headers.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(p.w, t.Render())
}
