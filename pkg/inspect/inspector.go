package inspect

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/schema"
	"github.com/mash-protocol/hashcfg/pkg/validate"
)

// Inspector errors.
var (
	ErrNoSchema = errors.New("no schema loaded")
	ErrNotHash  = errors.New("not a hash")
)

// Inspector provides inspection and mutation capabilities for a tree,
// optionally guided by a schema.
type Inspector struct {
	tree   *hash.Hash
	schema *schema.Schema
}

// NewInspector creates a new Inspector for the given tree. s may be nil.
func NewInspector(tree *hash.Hash, s *schema.Schema) *Inspector {
	if tree == nil {
		tree = hash.New()
	}
	return &Inspector{tree: tree, schema: s}
}

// Tree returns the underlying tree.
func (i *Inspector) Tree() *hash.Hash {
	return i.tree
}

// Schema returns the schema, or nil.
func (i *Inspector) Schema() *schema.Schema {
	return i.schema
}

// Entry describes one child of an inspected node.
type Entry struct {
	Name       string
	Value      hash.Value
	Attributes int

	// Element is the schema element of the entry, if known.
	Element *schema.Element
}

// Read returns the value or attribute a path addresses.
func (i *Inspector) Read(p *Path) (hash.Value, error) {
	switch {
	case p.IsRoot():
		return hash.Tree(i.tree), nil
	case p.Attribute != "":
		return i.tree.Attribute(p.Tree, p.Attribute)
	default:
		return i.tree.Get(p.Tree)
	}
}

// Write parses literal and stores it at the path. With a schema the
// literal is converted to the declared kind; otherwise the kind is
// inferred from the literal. Existing attributes are kept.
func (i *Inspector) Write(p *Path, literal string) error {
	if p.IsRoot() {
		return fmt.Errorf("%w: cannot replace the root", ErrInvalidPath)
	}
	if p.Attribute != "" {
		v, err := ParseLiteral(literal)
		if err != nil {
			return err
		}
		return i.tree.SetAttribute(p.Tree, p.Attribute, v)
	}
	v, err := i.parseFor(p, literal)
	if err != nil {
		return err
	}
	return i.tree.Set(p.Tree, v, hash.KeepAttributes())
}

func (i *Inspector) parseFor(p *Path, literal string) (hash.Value, error) {
	if e, ok := i.element(p); ok && e.IsLeaf() && e.ValueKind != hash.KindVectorHash {
		v, err := hash.String(literal).Convert(e.ValueKind)
		if err != nil {
			return hash.Value{}, errs.Wrap(errs.TypeMismatch, p.Tree, err, "expected %s", e.ValueKind)
		}
		return v, nil
	}
	return ParseLiteral(literal)
}

// Remove erases the node or attribute a path addresses.
func (i *Inspector) Remove(p *Path) error {
	switch {
	case p.IsRoot():
		i.tree.Clear()
		return nil
	case p.Attribute != "":
		return i.tree.EraseAttribute(p.Tree, p.Attribute)
	default:
		return i.tree.Erase(p.Tree)
	}
}

// List returns the children of the node a path addresses. Vectors of hashes
// list their rows as [i].
func (i *Inspector) List(p *Path) ([]Entry, error) {
	v, err := i.Read(&Path{Tree: p.Tree})
	if err != nil {
		return nil, err
	}
	var entries []Entry
	switch v.Kind() {
	case hash.KindHash:
		h, _ := hash.Extract[*hash.Hash](v)
		for key, n := range h.All() {
			entry := Entry{Name: key, Value: n.Value(), Attributes: n.Attributes().Len()}
			if e, ok := i.element(&Path{Tree: hash.JoinPath(p.Tree, key)}); ok {
				entry.Element = &e
			}
			entries = append(entries, entry)
		}
	case hash.KindVectorHash:
		for idx, row := range v.Elements() {
			entries = append(entries, Entry{Name: fmt.Sprintf("[%d]", idx), Value: row})
		}
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrNotHash, p, v.Kind())
	}
	return entries, nil
}

// Rows converts entries for FormatEntryTable.
func (f *Formatter) Rows(entries []Entry) []EntryRow {
	rows := make([]EntryRow, len(entries))
	for idx, e := range entries {
		row := EntryRow{Name: e.Name, Kind: e.Value.Kind().String()}
		unit := ""
		if e.Element != nil {
			row.Access = e.Element.Access.String()
			unit = e.Element.Unit
		}
		row.Value = f.FormatValue(e.Value, unit)
		if e.Attributes > 0 {
			row.Name += "@"
		}
		rows[idx] = row
	}
	return rows
}

// Help renders schema help for a name, which may be a path or an alias.
func (i *Inspector) Help(f *Formatter, name string) (string, error) {
	if i.schema == nil {
		return "", ErrNoSchema
	}
	if f == nil {
		f = NewFormatter()
	}
	path := ""
	if name != "" && name != "." {
		var ok bool
		if path, ok = ResolveName(i.schema, name); !ok {
			return "", errs.New(errs.PathNotFound, name, "no such element")
		}
	}
	return f.FormatSchema(i.schema, path)
}

// Validate checks the tree against the schema and returns the validated
// copy. The tree itself is not changed.
func (i *Inspector) Validate(rules validate.Rules, state string) (*hash.Hash, error) {
	if i.schema == nil {
		return nil, ErrNoSchema
	}
	return validate.Validate(i.tree, i.schema, state, rules)
}

func (i *Inspector) element(p *Path) (schema.Element, bool) {
	if i.schema == nil {
		return schema.Element{}, false
	}
	path, ok := p.SchemaPath()
	if !ok {
		return schema.Element{}, false
	}
	e, err := i.schema.Element(path)
	return e, err == nil
}

// ParseLiteral infers a value from a YAML scalar or flow literal: "42" is
// INT64, "1.5" FLOAT64, "[1, 2]" VECTOR_INT64, "{a: 1}" a hash. Anything
// that is not valid YAML is taken as a string.
func ParseLiteral(literal string) (hash.Value, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return hash.String(""), nil
	}
	var raw any
	if err := yaml.Unmarshal([]byte(literal), &raw); err != nil {
		return hash.String(literal), nil
	}
	v, err := hash.ValueOf(raw)
	if err != nil {
		return hash.Value{}, errs.Wrap(errs.TypeMismatch, "", err, "unsupported literal %q", literal)
	}
	return v, nil
}
