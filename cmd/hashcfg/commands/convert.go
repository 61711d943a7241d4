package commands

import (
	"fmt"
	"io"
	"log/slog"
)

// ConvertOptions configures the convert command.
type ConvertOptions struct {
	In   string
	Out  string
	From string
	To   string
}

// RunConvert reads a tree in one format and writes it in another.
func RunConvert(opts ConvertOptions, w io.Writer) error {
	if opts.In == "" || opts.Out == "" {
		return fmt.Errorf("both input and output are required")
	}
	h, err := ReadTree(opts.In, opts.From)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.In, err)
	}
	if err := WriteTree(opts.Out, opts.To, h); err != nil {
		return fmt.Errorf("writing %s: %w", opts.Out, err)
	}
	slog.Debug("converted tree", "in", opts.In, "out", opts.Out, "keys", h.Len())
	if opts.Out != "-" {
		fmt.Fprintf(w, "Wrote %s (%d top-level keys)\n", opts.Out, h.Len())
	}
	return nil
}
