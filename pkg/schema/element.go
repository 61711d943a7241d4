package schema

import (
	"slices"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// NodeType is the structural role of an element.
type NodeType uint8

const (
	// LeafNode holds a value.
	LeafNode NodeType = iota
	// HashNode groups child elements.
	HashNode
	// ChoiceNode selects exactly one of its child nodes.
	ChoiceNode
	// ListNode selects an ordered list of its child nodes.
	ListNode
)

// String returns the node type name.
func (t NodeType) String() string {
	switch t {
	case LeafNode:
		return "leaf"
	case HashNode:
		return "node"
	case ChoiceNode:
		return "choice"
	case ListNode:
		return "list"
	default:
		return "unknown"
	}
}

// Access says when an element may be written.
type Access uint8

const (
	// AccessReconfigurable elements may be set initially and at runtime.
	AccessReconfigurable Access = iota
	// AccessInit elements may only be set in the initial configuration.
	AccessInit
	// AccessReadOnly elements are only reported, never configured.
	AccessReadOnly
)

// String returns the access mode name.
func (a Access) String() string {
	switch a {
	case AccessReconfigurable:
		return "reconfigurable"
	case AccessInit:
		return "init"
	case AccessReadOnly:
		return "readOnly"
	default:
		return "unknown"
	}
}

// ParseAccess returns the access mode for a name.
func ParseAccess(s string) (Access, bool) {
	switch strings.ToLower(s) {
	case "reconfigurable", "":
		return AccessReconfigurable, true
	case "init":
		return AccessInit, true
	case "readonly":
		return AccessReadOnly, true
	}
	return 0, false
}

// Assignment says whether a configuration must supply an element.
type Assignment uint8

const (
	// Optional elements may be omitted; their default is injected.
	Optional Assignment = iota
	// Mandatory elements must be supplied.
	Mandatory
	// Internal elements are set by the owner, never by a reconfiguration.
	Internal
)

// String returns the assignment name.
func (a Assignment) String() string {
	switch a {
	case Optional:
		return "optional"
	case Mandatory:
		return "mandatory"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// ParseAssignment returns the assignment for a name.
func ParseAssignment(s string) (Assignment, bool) {
	switch strings.ToLower(s) {
	case "optional", "":
		return Optional, true
	case "mandatory":
		return Mandatory, true
	case "internal":
		return Internal, true
	}
	return 0, false
}

// Restrictions is a set of properties an overwrite may not change.
type Restrictions uint32

const (
	RestrictDefault Restrictions = 1 << iota
	RestrictMinInc
	RestrictMaxInc
	RestrictMinExc
	RestrictMaxExc
	RestrictMinSize
	RestrictMaxSize
	RestrictOptions
	RestrictAllowedStates
	RestrictAccess
	RestrictAssignment
	RestrictDescription
	RestrictDisplayedName
	RestrictUnit
	RestrictAlias
	RestrictTags
	RestrictRestrictions

	// RestrictAll forbids every overwrite.
	RestrictAll Restrictions = 1<<iota - 1
)

var restrictionNames = []struct {
	r    Restrictions
	name string
}{
	{RestrictDefault, "default"},
	{RestrictMinInc, "minInc"},
	{RestrictMaxInc, "maxInc"},
	{RestrictMinExc, "minExc"},
	{RestrictMaxExc, "maxExc"},
	{RestrictMinSize, "minSize"},
	{RestrictMaxSize, "maxSize"},
	{RestrictOptions, "options"},
	{RestrictAllowedStates, "allowedStates"},
	{RestrictAccess, "access"},
	{RestrictAssignment, "assignment"},
	{RestrictDescription, "description"},
	{RestrictDisplayedName, "displayedName"},
	{RestrictUnit, "unit"},
	{RestrictAlias, "alias"},
	{RestrictTags, "tags"},
	{RestrictRestrictions, "restrictions"},
}

// Names returns the property names in the set.
func (r Restrictions) Names() []string {
	var out []string
	for _, rn := range restrictionNames {
		if r&rn.r != 0 {
			out = append(out, rn.name)
		}
	}
	return out
}

// ParseRestriction returns the restriction for a property name.
func ParseRestriction(name string) (Restrictions, bool) {
	if name == "all" {
		return RestrictAll, true
	}
	for _, rn := range restrictionNames {
		if strings.EqualFold(rn.name, name) {
			return rn.r, true
		}
	}
	return 0, false
}

// Unset marks an absent size bound.
const Unset = -1

// Element describes one path of a schema. Values of the zero hash.Value
// (not IsValid) mean "not set".
type Element struct {
	// Path is the full dotted path; Key is its last segment.
	Path string
	Key  string

	NodeType NodeType

	// ValueKind is the declared kind of a leaf. Nodes, choices and lists
	// report hash.KindHash.
	ValueKind hash.Kind

	Access     Access
	Assignment Assignment

	// Default is the value injected when the element is absent. For a
	// choice it is the option name (STRING), for a list the option names
	// (VECTOR_STRING).
	Default hash.Value

	MinInc, MaxInc hash.Value
	MinExc, MaxExc hash.Value

	// MinSize and MaxSize bound the length of vectors, tables and lists.
	MinSize, MaxSize int

	// Options lists the allowed values of a scalar leaf.
	Options []hash.Value

	// AllowedStates restricts writing to these lifecycle states.
	AllowedStates []string

	Unit          string
	Description   string
	DisplayedName string
	Alias         string
	Tags          []string

	// RowSchema describes each row of a table (a VECTOR_HASH leaf).
	RowSchema *Schema

	Restrictions   Restrictions
	SkipValidation bool
}

func newElement() Element {
	return Element{MinSize: Unset, MaxSize: Unset}
}

// IsLeaf reports whether the element holds a value.
func (e *Element) IsLeaf() bool { return e.NodeType == LeafNode }

// IsTable reports whether the element is a vector of hashes with a row schema.
func (e *Element) IsTable() bool {
	return e.NodeType == LeafNode && e.ValueKind == hash.KindVectorHash && e.RowSchema != nil
}

// HasDefault reports whether a default value is declared.
func (e *Element) HasDefault() bool { return e.Default.IsValid() }

func (e *Element) clone() Element {
	c := *e
	c.Default = e.Default.Clone()
	c.Options = slices.Clone(e.Options)
	c.AllowedStates = slices.Clone(e.AllowedStates)
	c.Tags = slices.Clone(e.Tags)
	return c
}

// StateAllowed reports whether writing is allowed in state. An empty state
// or an element without allowed states never restricts.
func (e *Element) StateAllowed(state string) bool {
	return state == "" || len(e.AllowedStates) == 0 || slices.Contains(e.AllowedStates, state)
}

// CheckValue checks v against the options, bounds and size limits of the
// element. v must already have the declared kind. Violations are
// errs.ConstraintViolation errors located at the element's path.
func (e *Element) CheckValue(v hash.Value) error {
	if err := e.violation(v); err != nil {
		return err
	}
	return nil
}

func (e *Element) violation(v hash.Value) *errs.Error {
	if len(e.Options) > 0 && !slices.ContainsFunc(e.Options, v.Equal) {
		return errs.New(errs.ConstraintViolation, e.Path, "value %s is not one of %s", v, joinValues(e.Options))
	}
	if v.Kind().IsNumeric() {
		if err := e.checkBounds(v); err != nil {
			return err
		}
	}
	if v.Kind().IsVector() || e.NodeType == ListNode {
		if err := e.checkSize(v.Len()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Element) checkBounds(v hash.Value) *errs.Error {
	type bound struct {
		limit hash.Value
		fails func(c int) bool
		what  string
	}
	bounds := []bound{
		{e.MinInc, func(c int) bool { return c < 0 }, "below the inclusive minimum"},
		{e.MinExc, func(c int) bool { return c <= 0 }, "not above the exclusive minimum"},
		{e.MaxInc, func(c int) bool { return c > 0 }, "above the inclusive maximum"},
		{e.MaxExc, func(c int) bool { return c >= 0 }, "not below the exclusive maximum"},
	}
	for _, b := range bounds {
		if !b.limit.IsValid() {
			continue
		}
		c, ok := hash.Compare(v, b.limit)
		if !ok || b.fails(c) {
			return errs.New(errs.ConstraintViolation, e.Path, "value %s is %s %s", v, b.what, b.limit)
		}
	}
	return nil
}

func (e *Element) checkSize(n int) *errs.Error {
	if e.MinSize != Unset && n < e.MinSize {
		return errs.New(errs.ConstraintViolation, e.Path, "%d elements, need at least %d", n, e.MinSize)
	}
	if e.MaxSize != Unset && n > e.MaxSize {
		return errs.New(errs.ConstraintViolation, e.Path, "%d elements, allowed at most %d", n, e.MaxSize)
	}
	return nil
}

func joinValues(vs []hash.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
