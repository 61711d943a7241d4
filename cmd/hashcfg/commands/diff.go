package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/inspect"
	"github.com/mash-protocol/hashcfg/pkg/text"
)

// DiffOptions configures the diff command.
type DiffOptions struct {
	A, B   string
	Format string

	// Text prints a line diff of the YAML renderings instead of the
	// structural change list.
	Text bool
}

// UseColor reports whether f is a terminal that should get colored output.
// NO_COLOR disables colors everywhere.
func UseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RunDiff compares two trees. It returns true when they differ.
func RunDiff(opts DiffOptions, w io.Writer) (bool, error) {
	a, err := ReadTree(opts.A, opts.Format)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", opts.A, err)
	}
	b, err := ReadTree(opts.B, opts.Format)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", opts.B, err)
	}
	if opts.Text {
		return writeLineDiff(w, text.String(a), text.String(b)), nil
	}
	changes := hash.Diff(a, b)
	writeChanges(w, changes)
	return len(changes) > 0, nil
}

var (
	addedColor   = color.New(color.FgGreen).SprintFunc()
	removedColor = color.New(color.FgRed).SprintFunc()
	changedColor = color.New(color.FgYellow).SprintFunc()
)

func writeChanges(w io.Writer, changes []hash.Change) {
	f := &inspect.Formatter{}
	for _, c := range changes {
		switch c.Op {
		case hash.Added:
			fmt.Fprintln(w, addedColor(fmt.Sprintf("+ %s = %s", c.Path, f.FormatValue(c.New, ""))))
		case hash.Removed:
			fmt.Fprintln(w, removedColor(fmt.Sprintf("- %s = %s", c.Path, f.FormatValue(c.Old, ""))))
		case hash.Changed:
			fmt.Fprintln(w, changedColor(fmt.Sprintf("~ %s: %s -> %s",
				c.Path, f.FormatValue(c.Old, ""), f.FormatValue(c.New, ""))))
		case hash.AttributesChanged:
			fmt.Fprintln(w, changedColor(fmt.Sprintf("@ %s", c.Path)))
		}
	}
}

// writeLineDiff prints a unified-style line diff and reports whether the
// inputs differ.
func writeLineDiff(w io.Writer, a, b string) bool {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	differ := false
	for _, d := range diffs {
		prefix, paint := "  ", fmt.Sprint
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, paint, differ = "+ ", addedColor, true
		case diffmatchpatch.DiffDelete:
			prefix, paint, differ = "- ", removedColor, true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, paint(prefix+strings.TrimSuffix(line, "\n")), "\n")
		}
	}
	return differ
}
