package schema

import (
	"slices"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/ordered"
)

// Schema is an ordered tree of element descriptors under a root name.
//
// Elements are added through the builders in this package. A Schema is not
// safe for concurrent mutation; once built it may be shared by any number
// of validators.
type Schema struct {
	rootName string
	root     ordered.Map[*entry]
	aliases  map[string]string
}

type entry struct {
	elem     Element
	children ordered.Map[*entry]
}

var _ hash.Container = (*Schema)(nil)

// New creates an empty schema. The root name is used by rooted validation.
func New(rootName string) *Schema {
	return &Schema{rootName: rootName}
}

// RootName returns the name configurations are rooted under.
func (s *Schema) RootName() string { return s.rootName }

// lookup returns the entry at a dotted path.
func (s *Schema) lookup(path string) (*entry, bool) {
	if path == "" {
		return nil, false
	}
	level := &s.root
	var e *entry
	for _, key := range strings.Split(path, ".") {
		next, ok := level.Get(key)
		if !ok {
			return nil, false
		}
		e = next
		level = &e.children
	}
	return e, true
}

// level returns the children map of path; "" is the top level.
func (s *Schema) level(path string) (*ordered.Map[*entry], bool) {
	if path == "" {
		return &s.root, true
	}
	e, ok := s.lookup(path)
	if !ok {
		return nil, false
	}
	return &e.children, true
}

// Has reports whether an element is declared at path.
func (s *Schema) Has(path string) bool {
	_, ok := s.lookup(path)
	return ok
}

// Element returns a copy of the element at path.
func (s *Schema) Element(path string) (Element, error) {
	e, ok := s.lookup(path)
	if !ok {
		return Element{}, errs.New(errs.PathNotFound, path, "no element")
	}
	return e.elem.clone(), nil
}

// Children returns copies of the elements directly below path in
// declaration order. The empty path lists the top level.
func (s *Schema) Children(path string) ([]Element, error) {
	lvl, ok := s.level(path)
	if !ok {
		return nil, errs.New(errs.PathNotFound, path, "no element")
	}
	out := make([]Element, 0, lvl.Len())
	for _, e := range lvl.All() {
		out = append(out, e.elem.clone())
	}
	return out, nil
}

// Keys returns the top-level keys in declaration order.
func (s *Schema) Keys() []string { return s.root.Keys() }

// Len returns the number of top-level elements.
func (s *Schema) Len() int { return s.root.Len() }

// Empty reports whether nothing is declared.
func (s *Schema) Empty() bool { return s.root.Len() == 0 }

// Paths returns the full paths of all elements without children.
func (s *Schema) Paths() []string {
	var paths []string
	s.Walk(func(e *Element) bool {
		if c, _ := s.level(e.Path); c.Len() == 0 {
			paths = append(paths, e.Path)
		}
		return true
	})
	return paths
}

// Walk calls fn for every element depth-first in declaration order. The
// element must not be modified. Returning false skips the element's
// children.
func (s *Schema) Walk(fn func(e *Element) bool) {
	walkLevel(&s.root, fn)
}

func walkLevel(lvl *ordered.Map[*entry], fn func(*Element) bool) {
	for _, e := range lvl.All() {
		if fn(&e.elem) {
			walkLevel(&e.children, fn)
		}
	}
}

// KeyForAlias returns the path of the element carrying alias.
func (s *Schema) KeyForAlias(alias string) (string, bool) {
	path, ok := s.aliases[alias]
	return path, ok
}

// Clone returns a deep copy. Row schemas of tables are shared.
func (s *Schema) Clone() *Schema {
	out := New(s.rootName)
	out.root = *s.root.Clone(cloneEntry)
	if len(s.aliases) > 0 {
		out.aliases = make(map[string]string, len(s.aliases))
		for k, v := range s.aliases {
			out.aliases[k] = v
		}
	}
	return out
}

func cloneEntry(e *entry) *entry {
	return &entry{elem: e.elem.clone(), children: *e.children.Clone(cloneEntry)}
}

// Merge adds the elements of other that s does not declare yet. Elements
// present in both must have the same node type; their children are merged
// recursively. Conflicting aliases fail. On error s is unchanged.
func (s *Schema) Merge(other *Schema) error {
	out := s.Clone()
	if err := mergeLevel(out, &out.root, &other.root); err != nil {
		return err
	}
	*s = *out
	return nil
}

func mergeLevel(s *Schema, dst, src *ordered.Map[*entry]) error {
	for key, se := range src.All() {
		de, ok := dst.Get(key)
		if !ok {
			c := cloneEntry(se)
			var aliasErr error
			for _, e := range flatten(c) {
				if err := s.addAlias(e); err != nil && aliasErr == nil {
					aliasErr = err
				}
			}
			if aliasErr != nil {
				return aliasErr
			}
			dst.Set(key, c)
			continue
		}
		if de.elem.NodeType != se.elem.NodeType || de.elem.ValueKind != se.elem.ValueKind {
			return errs.New(errs.SchemaError, se.elem.Path, "cannot merge %s %s into %s %s",
				se.elem.NodeType, se.elem.ValueKind, de.elem.NodeType, de.elem.ValueKind)
		}
		if err := mergeLevel(s, &de.children, &se.children); err != nil {
			return err
		}
	}
	return nil
}

// flatten lists e and all its descendants.
func flatten(e *entry) []*Element {
	out := []*Element{&e.elem}
	walkLevel(&e.children, func(c *Element) bool {
		out = append(out, c)
		return true
	})
	return out
}

func (s *Schema) addAlias(e *Element) error {
	if e.Alias == "" {
		return nil
	}
	if path, ok := s.aliases[e.Alias]; ok && path != e.Path {
		return errs.New(errs.SchemaError, e.Path, "alias %q already used by %s", e.Alias, path)
	}
	if s.aliases == nil {
		s.aliases = make(map[string]string)
	}
	s.aliases[e.Alias] = e.Path
	return nil
}

// DefaultsHash returns the configuration made of every declared default:
// leaves with a default, every node, the default option of each choice and
// the default options of each list.
func (s *Schema) DefaultsHash() *hash.Hash {
	return defaultsOf(&s.root)
}

func defaultsOf(lvl *ordered.Map[*entry]) *hash.Hash {
	h := hash.New()
	for key, e := range lvl.All() {
		el := &e.elem
		switch el.NodeType {
		case HashNode:
			_, _ = h.Insert(key, hash.Tree(defaultsOf(&e.children)))
		case ChoiceNode:
			name, err := hash.Extract[string](el.Default)
			if err != nil {
				continue
			}
			opt, ok := e.children.Get(name)
			if !ok {
				continue
			}
			sub := hash.New()
			_, _ = sub.Insert(name, hash.Tree(defaultsOf(&opt.children)))
			_, _ = h.Insert(key, hash.Tree(sub))
		case ListNode:
			names, err := hash.Extract[[]string](el.Default)
			if err != nil {
				continue
			}
			var rows []*hash.Hash
			for _, name := range names {
				opt, ok := e.children.Get(name)
				if !ok {
					continue
				}
				row := hash.New()
				_, _ = row.Insert(name, hash.Tree(defaultsOf(&opt.children)))
				rows = append(rows, row)
			}
			_, _ = h.Insert(key, hash.Trees(rows))
		default:
			if el.HasDefault() {
				_, _ = h.Insert(key, el.Default.Clone())
			}
		}
	}
	return h
}

// Tagged returns the paths of elements carrying tag, in declaration order.
func (s *Schema) Tagged(tag string) []string {
	var out []string
	s.Walk(func(e *Element) bool {
		if slices.Contains(e.Tags, tag) {
			out = append(out, e.Path)
		}
		return true
	})
	return out
}
