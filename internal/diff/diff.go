// Package diff renders line diffs of rewritten files in unified format.
// Line matching is done by sergi/go-diff; this package groups the result
// into hunks with context.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// Line is one line of a hunk.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is a group of changes with surrounding context. Starts are 1-based.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff is the diff of one file.
type FileDiff struct {
	Path  string
	Hunks []Hunk
}

// Empty reports whether the contents were identical.
func (d *FileDiff) Empty() bool {
	return len(d.Hunks) == 0
}

// op is a single line with its position in each side; -1 when absent.
type op struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// Compute diffs two versions of a file.
func Compute(path string, before, after []byte, context int) *FileDiff {
	if context < 0 {
		context = 0
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	return &FileDiff{Path: path, Hunks: group(toOps(diffs), context)}
}

func toOps(diffs []diffmatchpatch.Diff) []op {
	var ops []op
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if d.Text == "" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, op{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, op{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, op{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

// group cuts ops into hunks, merging changes whose context overlaps.
func group(ops []op, context int) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].typ == LineContext {
			i++
			continue
		}

		start := i - context
		if start < 0 {
			start = 0
		}
		end := i
		for end < len(ops) {
			if ops[end].typ != LineContext {
				end++
				continue
			}
			// run of context; stop if it is longer than two contexts
			run := end
			for run < len(ops) && ops[run].typ == LineContext {
				run++
			}
			if run == len(ops) || run-end > 2*context {
				end += min(context, run-end)
				break
			}
			end = run
		}

		h := Hunk{OldStart: firstLine(ops[start:end], true), NewStart: firstLine(ops[start:end], false)}
		for _, o := range ops[start:end] {
			h.Lines = append(h.Lines, Line{Type: o.typ, Content: o.content})
			if o.typ != LineAdded {
				h.OldCount++
			}
			if o.typ != LineRemoved {
				h.NewCount++
			}
		}
		hunks = append(hunks, h)
		i = end
	}
	return hunks
}

// firstLine returns the 1-based start of a hunk on one side. A side with no
// lines in the hunk reports the line it follows, as diff(1) does.
func firstLine(ops []op, old bool) int {
	for _, o := range ops {
		n := o.newLine
		if old {
			n = o.oldLine
		}
		if n >= 0 {
			return n + 1
		}
	}
	return 0
}

// Unified renders the diff in unified format with a/ and b/ prefixes.
func (d *FileDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", d.Path, d.Path)
	for _, h := range d.Hunks {
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", span(h.OldStart, h.OldCount), span(h.NewStart, h.NewCount))
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteByte('+')
			case LineRemoved:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func span(start, count int) string {
	if count == 1 {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
