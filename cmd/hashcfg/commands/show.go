package commands

import (
	"fmt"
	"io"

	"github.com/mash-protocol/hashcfg/pkg/inspect"
	"github.com/mash-protocol/hashcfg/pkg/schema"
)

// ShowOptions configures the show command.
type ShowOptions struct {
	File       string
	Format     string
	Attributes bool
	Metadata   bool
}

// RunShow prints a tree as an indented listing.
func RunShow(opts ShowOptions, w io.Writer) error {
	h, err := ReadTree(opts.File, opts.Format)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.File, err)
	}
	f := inspect.NewFormatter()
	f.ShowAttributes = opts.Attributes
	f.ShowMetadata = opts.Metadata
	_, err = io.WriteString(w, f.FormatTree(h))
	return err
}

// RunHelp prints the documentation of a schema element. An empty name
// summarizes the whole schema.
func RunHelp(schemaPath, name string, w io.Writer) error {
	s, err := schema.LoadYAML(schemaPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	out, err := inspect.NewInspector(nil, s).Help(nil, name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
