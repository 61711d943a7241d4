package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/inspect"
	"github.com/mash-protocol/hashcfg/pkg/schema"
	"github.com/mash-protocol/hashcfg/pkg/validate"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

const shellHelp = `Commands:
  get <path>             Show a value, attribute (path@attr) or subtree
  set <path> <literal>   Set a value; the schema decides the kind if loaded
  rm <path>              Remove a node or attribute
  attr <path>            List the attributes of a node
  ls [path]              List the children of a node
  help [path]            Show schema documentation
  validate [state]       Validate the tree against the schema
  save [file]            Write the tree back (default: the opened file)
  quit                   Leave the shell
`

// Shell is an interactive editor for one tree.
type Shell struct {
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rules     validate.Rules

	file   string
	format string
	dirty  bool
}

// NewShell creates a shell editing tree, which was read from file.
// s may be nil.
func NewShell(tree *hash.Hash, s *schema.Schema, file, format string) *Shell {
	return &Shell{
		inspector: inspect.NewInspector(tree, s),
		formatter: inspect.NewFormatter(),
		rules:     validate.DefaultRules(),
		file:      file,
		format:    format,
	}
}

// Tree returns the edited tree.
func (sh *Shell) Tree() *hash.Hash {
	return sh.inspector.Tree()
}

// Dirty reports whether the tree has unsaved changes.
func (sh *Shell) Dirty() bool {
	return sh.dirty
}

// Run starts the interactive loop on the terminal.
func (sh *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hashcfg> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    sh.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprint(out, shellHelp)
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			break
		}
		if err := sh.Exec(line, out); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			fmt.Fprintf(rl.Stderr(), "Error: %v\n", err)
		}
	}
	if sh.dirty {
		fmt.Fprintln(out, "Unsaved changes discarded.")
	}
	return nil
}

func (sh *Shell) completer() *readline.PrefixCompleter {
	paths := readline.PcItemDynamic(sh.complete)
	return readline.NewPrefixCompleter(
		readline.PcItem("get", paths),
		readline.PcItem("set", paths),
		readline.PcItem("rm", paths),
		readline.PcItem("attr", paths),
		readline.PcItem("ls", paths),
		readline.PcItem("help", paths),
		readline.PcItem("validate"),
		readline.PcItem("save"),
		readline.PcItem("quit"),
	)
}

// complete returns path candidates for the last word of line.
func (sh *Shell) complete(line string) []string {
	prefix := ""
	if fields := strings.Fields(line); len(fields) > 1 && !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
	}
	if s := sh.inspector.Schema(); s != nil {
		return inspect.Complete(s, prefix)
	}
	var out []string
	for _, p := range sh.Tree().Paths() {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// Exec runs one command line and writes its output to w.
func (sh *Shell) Exec(line string, w io.Writer) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "get", "g":
		return sh.cmdGet(args, w)
	case "set", "s":
		return sh.cmdSet(line, args)
	case "rm":
		return sh.cmdRemove(args)
	case "attr", "a":
		return sh.cmdAttr(args, w)
	case "ls", "l":
		return sh.cmdList(args, w)
	case "help", "?":
		return sh.cmdHelp(args, w)
	case "validate", "v":
		return sh.cmdValidate(args, w)
	case "save":
		return sh.cmdSave(args, w)
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (sh *Shell) path(args []string, required bool) (*inspect.Path, error) {
	if len(args) == 0 {
		if required {
			return nil, inspect.ErrEmptyPath
		}
		return &inspect.Path{}, nil
	}
	return inspect.ParsePath(args[0])
}

func (sh *Shell) cmdGet(args []string, w io.Writer) error {
	p, err := sh.path(args, false)
	if err != nil {
		return err
	}
	v, err := sh.inspector.Read(p)
	if err != nil {
		return err
	}
	if h, err := hash.Extract[*hash.Hash](v); err == nil {
		fmt.Fprint(w, sh.formatter.FormatTree(h))
		return nil
	}
	fmt.Fprintf(w, "%s = %s (%s)\n", p, sh.formatter.FormatValue(v, sh.unit(p)), v.Kind())
	return nil
}

func (sh *Shell) unit(p *inspect.Path) string {
	if p.Attribute != "" {
		return ""
	}
	if s := sh.inspector.Schema(); s != nil {
		if path, ok := p.SchemaPath(); ok {
			if e, err := s.Element(path); err == nil {
				return e.Unit
			}
		}
	}
	return ""
}

// cmdSet takes the literal from the raw line so it may contain spaces.
func (sh *Shell) cmdSet(line string, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: set <path> <literal>")
	}
	p, err := inspect.ParsePath(args[0])
	if err != nil {
		return err
	}
	rest := strings.TrimSpace(line)
	rest = strings.TrimSpace(rest[strings.IndexAny(rest, " \t"):])
	literal := strings.TrimSpace(rest[len(args[0]):])
	if err := sh.inspector.Write(p, literal); err != nil {
		return err
	}
	sh.dirty = true
	return nil
}

func (sh *Shell) cmdRemove(args []string) error {
	p, err := sh.path(args, true)
	if err != nil {
		return err
	}
	if err := sh.inspector.Remove(p); err != nil {
		return err
	}
	sh.dirty = true
	return nil
}

func (sh *Shell) cmdAttr(args []string, w io.Writer) error {
	p, err := sh.path(args, true)
	if err != nil {
		return err
	}
	n, err := sh.Tree().Node(p.Tree)
	if err != nil {
		return err
	}
	if n.Attributes().Len() == 0 {
		fmt.Fprintln(w, "  (no attributes)")
		return nil
	}
	for name, v := range n.Attributes().All() {
		fmt.Fprintf(w, "  @%s = %s (%s)\n", name, sh.formatter.FormatValue(v, ""), v.Kind())
	}
	return nil
}

func (sh *Shell) cmdList(args []string, w io.Writer) error {
	p, err := sh.path(args, false)
	if err != nil {
		return err
	}
	entries, err := sh.inspector.List(p)
	if err != nil {
		return err
	}
	fmt.Fprint(w, sh.formatter.FormatEntryTable(sh.formatter.Rows(entries)))
	return nil
}

func (sh *Shell) cmdHelp(args []string, w io.Writer) error {
	if sh.inspector.Schema() == nil {
		fmt.Fprint(w, shellHelp)
		return nil
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	out, err := sh.inspector.Help(sh.formatter, name)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	return nil
}

func (sh *Shell) cmdValidate(args []string, w io.Writer) error {
	state := ""
	if len(args) > 0 {
		state = args[0]
	}
	rules := sh.rules
	rules.CollectAll = true
	if _, err := sh.inspector.Validate(rules, state); err != nil {
		writeViolations(w, err)
		return nil
	}
	fmt.Fprintln(w, "OK")
	return nil
}

func (sh *Shell) cmdSave(args []string, w io.Writer) error {
	file := sh.file
	if len(args) > 0 {
		file = args[0]
	}
	if file == "" || file == "-" {
		return errors.New("usage: save <file>")
	}
	format := sh.format
	if file != sh.file {
		format = ""
	}
	if err := WriteTree(file, format, sh.Tree()); err != nil {
		return err
	}
	sh.dirty = false
	fmt.Fprintf(w, "Saved %s\n", file)
	return nil
}
