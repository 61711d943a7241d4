package schema

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/version"
)

// RawSchema is the YAML form of a schema descriptor file.
type RawSchema struct {
	// Version is the descriptor format version; empty means current.
	Version  string        `yaml:"version,omitempty"`
	Root     string        `yaml:"root"`
	Elements []*RawElement `yaml:"elements"`
}

// RawElement is one element of a descriptor file. Type is a value kind
// literal (int32, vector_string, ...) or one of node, choice, list and
// table. Keys of nested elements are relative to their parent.
type RawElement struct {
	Key            string        `yaml:"key"`
	Type           string        `yaml:"type"`
	Access         string        `yaml:"access,omitempty"`
	Assignment     string        `yaml:"assignment,omitempty"`
	Default        any           `yaml:"default,omitempty"`
	MinInc         any           `yaml:"minInc,omitempty"`
	MaxInc         any           `yaml:"maxInc,omitempty"`
	MinExc         any           `yaml:"minExc,omitempty"`
	MaxExc         any           `yaml:"maxExc,omitempty"`
	MinSize        *int          `yaml:"minSize,omitempty"`
	MaxSize        *int          `yaml:"maxSize,omitempty"`
	Options        []any         `yaml:"options,omitempty"`
	AllowedStates  []string      `yaml:"allowedStates,omitempty"`
	Unit           string        `yaml:"unit,omitempty"`
	Description    string        `yaml:"description,omitempty"`
	DisplayedName  string        `yaml:"displayedName,omitempty"`
	Alias          string        `yaml:"alias,omitempty"`
	Tags           []string      `yaml:"tags,omitempty"`
	Restrictions   []string      `yaml:"restrictions,omitempty"`
	SkipValidation bool          `yaml:"skipValidation,omitempty"`
	Elements       []*RawElement `yaml:"elements,omitempty"`
	Rows           []*RawElement `yaml:"rows,omitempty"`
}

// ParseYAML builds a schema from a YAML descriptor. Malformed YAML and
// unknown fields are errs.SyntaxError; invalid declarations are
// errs.SchemaError.
func ParseYAML(data []byte) (*Schema, error) {
	var raw RawSchema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.SyntaxError, "", err, "parsing schema descriptor")
	}
	return raw.Build()
}

// LoadYAML reads and parses a descriptor file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// Build commits the raw elements into a new schema.
func (r *RawSchema) Build() (*Schema, error) {
	if err := version.Check(r.Version); err != nil {
		return nil, errs.Wrap(errs.SchemaError, "version", err, "descriptor format")
	}
	s := New(r.Root)
	if err := addRaw(s, "", r.Elements); err != nil {
		return nil, err
	}
	return s, nil
}

func addRaw(s *Schema, prefix string, elems []*RawElement) error {
	for _, re := range elems {
		if re.Key == "" {
			return errs.New(errs.SchemaError, prefix, "element without key")
		}
		path := hash.JoinPath(prefix, re.Key)
		if err := re.commit(s, path); err != nil {
			return err
		}
		if err := addRaw(s, path, re.Elements); err != nil {
			return err
		}
	}
	return nil
}

func (re *RawElement) commit(s *Schema, path string) error {
	fail := func(format string, args ...any) error {
		return errs.New(errs.SchemaError, path, format, args...)
	}

	var (
		elem   *Element
		commit func() error
	)
	switch t := strings.ToLower(re.Type); t {
	case "node":
		b := NodeElement(s)
		elem, commit = &b.elem, b.Commit
	case "choice":
		b := ChoiceElement(s)
		if re.Default != nil {
			name, ok := re.Default.(string)
			if !ok {
				return fail("choice default must be an option name")
			}
			b.DefaultValue(name)
		}
		elem, commit = &b.elem, b.Commit
	case "list":
		b := ListElement(s)
		if re.Default != nil {
			names, err := stringList(re.Default)
			if err != nil {
				return fail("list default: %v", err)
			}
			b.DefaultValue(names...)
		}
		elem, commit = &b.elem, b.Commit
	case "table":
		rows := New("")
		if err := addRaw(rows, "", re.Rows); err != nil {
			return err
		}
		b := ElementOf(s, hash.KindVectorHash).RowSchema(rows)
		re.values(b)
		elem, commit = &b.elem, b.Commit
	default:
		kind, ok := hash.ParseKind(t)
		if !ok {
			return fail("unknown type %q", re.Type)
		}
		if kind == hash.KindHash {
			return fail("nested elements use type node")
		}
		b := ElementOf(s, kind)
		re.values(b)
		elem, commit = &b.elem, b.Commit
	}

	if elem.IsLeaf() && len(re.Elements) > 0 {
		return fail("a %s has no child elements", re.Type)
	}
	if elem.RowSchema == nil && len(re.Rows) > 0 {
		return fail("rows are only allowed on tables")
	}
	elem.Path = path
	if err := re.apply(elem); err != nil {
		return err
	}
	return commit()
}

// apply copies the properties that need no kind conversion.
func (re *RawElement) apply(e *Element) error {
	var ok bool
	if e.Access, ok = ParseAccess(re.Access); !ok {
		return errs.New(errs.SchemaError, e.Path, "unknown access %q", re.Access)
	}
	if e.Assignment, ok = ParseAssignment(re.Assignment); !ok {
		return errs.New(errs.SchemaError, e.Path, "unknown assignment %q", re.Assignment)
	}
	if re.MinSize != nil {
		e.MinSize = *re.MinSize
	}
	if re.MaxSize != nil {
		e.MaxSize = *re.MaxSize
	}
	e.AllowedStates = re.AllowedStates
	e.Unit = re.Unit
	e.Description = re.Description
	e.DisplayedName = re.DisplayedName
	e.Alias = re.Alias
	e.Tags = re.Tags
	e.SkipValidation = re.SkipValidation
	for _, name := range re.Restrictions {
		r, ok := ParseRestriction(name)
		if !ok {
			return errs.New(errs.SchemaError, e.Path, "unknown restriction %q", name)
		}
		e.Restrictions |= r
	}
	return nil
}

// values converts the literal properties to the builder's kind.
func (re *RawElement) values(b *RawBuilder) {
	kind := b.elem.ValueKind
	lit := func(raw any) any {
		v, err := literal(kind, raw)
		if err != nil {
			b.fail(err)
			return nil
		}
		return v
	}
	if re.Default != nil {
		b.DefaultValue(lit(re.Default))
	}
	for _, o := range re.Options {
		b.Options(lit(o))
	}
	if re.MinInc != nil {
		b.MinInc(lit(re.MinInc))
	}
	if re.MaxInc != nil {
		b.MaxInc(lit(re.MaxInc))
	}
	if re.MinExc != nil {
		b.MinExc(lit(re.MinExc))
	}
	if re.MaxExc != nil {
		b.MaxExc(lit(re.MaxExc))
	}
}

// literal converts a decoded YAML value for an element of kind. Sequences
// are converted element by element so that [1, 2.5] makes a float vector.
func literal(kind hash.Kind, raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok || !kind.IsVector() {
		return raw, nil
	}
	if len(items) == 0 {
		if kind == hash.KindVectorHash {
			return hash.Trees(nil), nil
		}
		return hash.VectorString(nil).Convert(kind)
	}
	elems := make([]hash.Value, len(items))
	for i, item := range items {
		v, err := hash.MakeValue(kind.Elem(), item)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return hash.VectorFrom(elems)
}

func stringList(raw any) ([]string, error) {
	v, err := literal(hash.KindVectorString, raw)
	if err != nil {
		return nil, err
	}
	out, err := hash.MakeValue(hash.KindVectorString, v)
	if err != nil {
		return nil, err
	}
	return hash.Extract[[]string](out)
}
