package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/log"
	"github.com/mash-protocol/hashcfg/pkg/schema"
	"github.com/mash-protocol/hashcfg/pkg/text"
	"github.com/mash-protocol/hashcfg/pkg/validate"
)

// ErrInvalid is returned by RunValidate when the configuration has
// violations. The violations themselves are written to the output.
var ErrInvalid = errors.New("configuration is invalid")

// ValidateOptions configures the validate command.
type ValidateOptions struct {
	Schema  string
	Config  string
	Format  string
	State   string
	Mode    string
	Rules   string
	Collect bool

	// Audit is a file receiving the audit log of the run.
	Audit string

	// Out receives the validated configuration. Empty prints it as YAML.
	Out string
}

// RunValidate validates a configuration file against a schema file.
func RunValidate(opts ValidateOptions, w io.Writer) error {
	s, err := schema.LoadYAML(opts.Schema)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	cfg, err := ReadTree(opts.Config, opts.Format)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Config, err)
	}

	rules := validate.DefaultRules()
	if opts.Rules != "" {
		if rules, err = validate.LoadRules(opts.Rules); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
	}
	if opts.Mode != "" {
		mode, ok := validate.ParseMode(opts.Mode)
		if !ok {
			return fmt.Errorf("unknown mode %q (use initial, reconfigure, report)", opts.Mode)
		}
		rules.Mode = mode
	}
	if opts.Collect {
		rules.CollectAll = true
	}

	loggers := []log.Logger{log.NewSlogAdapter(slog.Default()).WithLevel(slog.LevelDebug)}
	if opts.Audit != "" {
		audit, err := log.NewFileLogger(opts.Audit)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer audit.Close()
		loggers = append(loggers, audit)
	}
	rules.Logger = log.NewMultiLogger(loggers...)

	out, err := validate.New(rules).Validate(s, cfg, opts.State)
	if err != nil {
		writeViolations(w, err)
		return ErrInvalid
	}

	if opts.Out != "" {
		if err := WriteTree(opts.Out, "", out); err != nil {
			return fmt.Errorf("writing %s: %w", opts.Out, err)
		}
		fmt.Fprintf(w, "OK: wrote %s\n", opts.Out)
		return nil
	}
	data, err := text.Marshal(out)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeViolations(w io.Writer, err error) {
	var list errs.List
	if errors.As(err, &list) {
		fmt.Fprintf(w, "%d violation(s):\n", len(list))
		for _, e := range list {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	fmt.Fprintf(w, "violation: %s\n", err)
}
