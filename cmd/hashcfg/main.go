// Command hashcfg converts, validates, inspects and edits attributed
// configuration trees.
//
// Usage:
//
//	hashcfg <command> [flags] <args>
//
// Commands:
//
//	convert   Convert a tree between YAML, binary and CBOR
//	validate  Validate a configuration against a schema
//	show      Print a tree with kinds and attributes
//	help      Show schema documentation
//	diff      Compare two trees
//	shell     Edit a tree interactively
//	log       View an audit log
//	stats     Summarize an audit log
//	version   Print the supported descriptor format version
//
// Examples:
//
//	# Convert YAML to the binary format
//	hashcfg convert -in motor.yaml -out motor.bin
//
//	# Validate against a schema in the ON state, writing an audit log
//	hashcfg validate -schema motor.schema.yaml -state ON -audit run.alog motor.yaml
//
//	# Show only decisions below "limits"
//	hashcfg log -category decision -path limits run.alog
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/mash-protocol/hashcfg/cmd/hashcfg/commands"
	"github.com/mash-protocol/hashcfg/pkg/log"
	"github.com/mash-protocol/hashcfg/pkg/schema"
	"github.com/mash-protocol/hashcfg/pkg/version"
)

const usage = `hashcfg - attributed configuration tree tool

Usage:
  hashcfg <command> [flags] <args>

Commands:
  convert   Convert a tree between YAML, binary and CBOR
  validate  Validate a configuration against a schema
  show      Print a tree with kinds and attributes
  help      Show schema documentation
  diff      Compare two trees
  shell     Edit a tree interactively
  log       View an audit log
  stats     Summarize an audit log
  version   Print the supported descriptor format version

Use "hashcfg <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "convert":
		runConvert(args)
	case "validate":
		runValidate(args)
	case "show":
		runShow(args)
	case "help":
		runHelp(args)
	case "diff":
		runDiff(args)
	case "shell":
		runShell(args)
	case "log":
		runLog(args)
	case "stats":
		runStats(args)
	case "version":
		fmt.Printf("hashcfg descriptor format %s\n", version.Current)
	case "-h", "-help", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func newFlagSet(name, synopsis, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "hashcfg %s - %s\n\nUsage:\n  hashcfg %s %s\n\nFlags:\n", name, summary, name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// logLevelFlag registers -log-level and returns a function installing the
// default slog logger after parsing.
func logLevelFlag(fs *flag.FlagSet) func() {
	level := fs.String("log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	return func() {
		var l slog.Level
		if err := l.UnmarshalText([]byte(*level)); err != nil {
			fail(fmt.Errorf("invalid log level %q", *level))
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
		slog.SetDefault(slog.New(handler))
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func parse(fs *flag.FlagSet, args []string, nargs int, what string) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < nargs {
		fmt.Fprintf(os.Stderr, "Error: %s required\n", what)
		fs.Usage()
		os.Exit(1)
	}
}

func runConvert(args []string) {
	fs := newFlagSet("convert", "-in FILE -out FILE [flags]", "Convert a tree between formats")
	var opts commands.ConvertOptions
	fs.StringVar(&opts.In, "in", "", "Input file (- for stdin)")
	fs.StringVar(&opts.Out, "out", "", "Output file (- for stdout)")
	fs.StringVar(&opts.From, "from", "", "Input format (yaml, binary, cbor); default from extension")
	fs.StringVar(&opts.To, "to", "", "Output format (yaml, binary, cbor); default from extension")
	setup := logLevelFlag(fs)
	parse(fs, args, 0, "")
	setup()

	if err := commands.RunConvert(opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runValidate(args []string) {
	fs := newFlagSet("validate", "-schema FILE [flags] <config>", "Validate a configuration against a schema")
	var opts commands.ValidateOptions
	fs.StringVar(&opts.Schema, "schema", "", "Schema file (YAML)")
	fs.StringVar(&opts.Format, "format", "", "Configuration format; default from extension")
	fs.StringVar(&opts.State, "state", "", "Lifecycle state to validate against")
	fs.StringVar(&opts.Mode, "mode", "", "Validation mode (initial, reconfigure, report)")
	fs.StringVar(&opts.Rules, "rules", "", "Rules file (YAML)")
	fs.BoolVar(&opts.Collect, "collect", false, "Report every violation instead of the first")
	fs.StringVar(&opts.Audit, "audit", "", "Write the audit log of the run to FILE")
	fs.StringVar(&opts.Out, "o", "", "Write the validated configuration to FILE")
	setup := logLevelFlag(fs)
	parse(fs, args, 1, "configuration file")
	setup()
	if opts.Schema == "" {
		fail(errors.New("-schema is required"))
	}
	opts.Config = fs.Arg(0)

	if err := commands.RunValidate(opts, os.Stdout); err != nil {
		if !errors.Is(err, commands.ErrInvalid) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runShow(args []string) {
	fs := newFlagSet("show", "[flags] <file>", "Print a tree")
	var opts commands.ShowOptions
	fs.StringVar(&opts.Format, "format", "", "Input format; default from extension")
	fs.BoolVar(&opts.Attributes, "attrs", true, "Show attributes")
	fs.BoolVar(&opts.Metadata, "kinds", true, "Show value kinds")
	setup := logLevelFlag(fs)
	parse(fs, args, 1, "file")
	setup()
	opts.File = fs.Arg(0)

	if err := commands.RunShow(opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runHelp(args []string) {
	fs := newFlagSet("help", "-schema FILE [path]", "Show schema documentation")
	schemaPath := fs.String("schema", "", "Schema file (YAML)")
	parse(fs, args, 0, "")
	if *schemaPath == "" {
		if fs.NArg() == 0 {
			fmt.Print(usage)
			return
		}
		fail(errors.New("-schema is required"))
	}

	if err := commands.RunHelp(*schemaPath, fs.Arg(0), os.Stdout); err != nil {
		fail(err)
	}
}

func runDiff(args []string) {
	fs := newFlagSet("diff", "[flags] <a> <b>", "Compare two trees")
	var opts commands.DiffOptions
	fs.StringVar(&opts.Format, "format", "", "Input format; default from extension")
	fs.BoolVar(&opts.Text, "text", false, "Show a line diff of the YAML renderings")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	setup := logLevelFlag(fs)
	parse(fs, args, 2, "two files")
	setup()
	opts.A, opts.B = fs.Arg(0), fs.Arg(1)
	color.NoColor = *noColor || !commands.UseColor(os.Stdout)

	differ, err := commands.RunDiff(opts, os.Stdout)
	if err != nil {
		fail(err)
	}
	if differ {
		os.Exit(1)
	}
}

func runShell(args []string) {
	fs := newFlagSet("shell", "[flags] [file]", "Edit a tree interactively")
	schemaPath := fs.String("schema", "", "Schema file (YAML) for kinds, help and validation")
	format := fs.String("format", "", "File format; default from extension")
	setup := logLevelFlag(fs)
	parse(fs, args, 0, "")
	setup()

	var s *schema.Schema
	if *schemaPath != "" {
		var err error
		if s, err = schema.LoadYAML(*schemaPath); err != nil {
			fail(fmt.Errorf("loading schema: %w", err))
		}
	}
	file := fs.Arg(0)
	tree, err := openForShell(file, *format)
	if err != nil {
		fail(err)
	}

	if err := commands.NewShell(tree, s, file, *format).Run(); err != nil {
		fail(err)
	}
}

func runLog(args []string) {
	fs := newFlagSet("log", "[flags] <file.alog>", "View an audit log")
	runID := fs.String("run", "", "Filter by run ID (prefix)")
	layer := fs.String("layer", "", "Filter by layer (codec, schema, validation)")
	category := fs.String("category", "", "Filter by category (frame, run, decision, error)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	pathPrefix := fs.String("path", "", "Only decisions whose path starts with this prefix")
	parse(fs, args, 1, "log file path")

	var filter log.Filter
	filter.PathPrefix = *pathPrefix
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}
	if *runID != "" {
		id, err := commands.ResolveRunID(fs.Arg(0), strings.ToLower(*runID))
		if err != nil {
			fail(err)
		}
		filter.RunID = id
	}

	if err := commands.RunLogView(fs.Arg(0), filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := newFlagSet("stats", "<file.alog>", "Summarize an audit log")
	parse(fs, args, 1, "log file path")

	if err := commands.RunLogStats(fs.Arg(0), os.Stdout); err != nil {
		fail(err)
	}
}
