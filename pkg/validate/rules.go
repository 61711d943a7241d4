package validate

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/log"
)

// Mode is the mutation context a configuration is validated for.
type Mode uint8

const (
	// ModeInitial validates the configuration a component is created with.
	ModeInitial Mode = iota
	// ModeReconfigure validates a runtime update. Init-only and internal
	// elements are rejected.
	ModeReconfigure
	// ModeReport validates values reported by the component itself.
	// Read-only elements are accepted and states are not checked.
	ModeReport
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeInitial:
		return "initial"
	case ModeReconfigure:
		return "reconfigure"
	case ModeReport:
		return "report"
	default:
		return "unknown"
	}
}

// ParseMode returns the mode for a name.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "initial", "":
		return ModeInitial, true
	case "reconfigure":
		return ModeReconfigure, true
	case "report":
		return ModeReport, true
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, ok := ParseMode(string(text))
	if !ok {
		return errs.New(errs.SyntaxError, "mode", "unknown mode %q", text)
	}
	*m = mode
	return nil
}

// Rules configures a validation pass. Use DefaultRules as the starting
// point; the zero value disables default injection.
type Rules struct {
	// AllowUnknownKeys copies undeclared keys through instead of failing
	// with UnknownElement.
	AllowUnknownKeys bool `yaml:"allowUnknownKeys"`

	// AllowMissingMandatory tolerates absent mandatory elements.
	AllowMissingMandatory bool `yaml:"allowMissingMandatory"`

	// InjectDefaults inserts defaults for absent elements.
	InjectDefaults bool `yaml:"injectDefaults"`

	// CollectAll reports every violation as an errs.List instead of
	// stopping at the first one.
	CollectAll bool `yaml:"collectAll"`

	// AllowUnrootedConfiguration accepts the configuration itself. When
	// false the input must be a single key named after the schema root.
	AllowUnrootedConfiguration bool `yaml:"allowUnrootedConfiguration"`

	Mode Mode `yaml:"mode"`

	// InjectTimestamps attaches a timestamp attribute to validated leaves
	// that have none; ForceTimestamps replaces existing ones as well.
	InjectTimestamps bool `yaml:"injectTimestamps"`
	ForceTimestamps  bool `yaml:"forceTimestamps"`

	// CoerceTypes converts values of the wrong kind before reporting a
	// TypeMismatch.
	CoerceTypes bool `yaml:"coerceTypes"`

	// Logger receives run and decision events. Nil disables logging.
	Logger log.Logger `yaml:"-"`

	// Now stamps injected timestamps. Nil means time.Now.
	Now func() time.Time `yaml:"-"`
}

// DefaultRules returns the rules used when nothing else is configured:
// defaults are injected and unrooted input is accepted.
func DefaultRules() Rules {
	return Rules{
		InjectDefaults:             true,
		AllowUnrootedConfiguration: true,
	}
}

// ParseRules reads rules from YAML. Fields that are not mentioned keep
// their DefaultRules values.
func ParseRules(data []byte) (Rules, error) {
	r := DefaultRules()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, errs.Wrap(errs.SyntaxError, "", err, "parsing rules")
	}
	return r, nil
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}
	return ParseRules(data)
}
