package schema

import (
	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/ordered"
)

// Attribute names of the descriptor hash.
const (
	AttrNodeType       = "nodeType"
	AttrValueType      = "valueType"
	AttrAccessMode     = "accessMode"
	AttrAssignment     = "assignment"
	AttrDefaultValue   = "defaultValue"
	AttrMinInc         = "minInc"
	AttrMaxInc         = "maxInc"
	AttrMinExc         = "minExc"
	AttrMaxExc         = "maxExc"
	AttrMinSize        = "minSize"
	AttrMaxSize        = "maxSize"
	AttrOptions        = "options"
	AttrAllowedStates  = "allowedStates"
	AttrUnit           = "unit"
	AttrDescription    = "description"
	AttrDisplayedName  = "displayedName"
	AttrAlias          = "alias"
	AttrTags           = "tags"
	AttrRowSchema      = "rowSchema"
	AttrRestrictions   = "restrictions"
	AttrSkipValidation = "skipValidation"
)

// ToHash renders the schema as a descriptor hash: one node per element,
// its properties as attributes. Nodes, choices and lists hold the
// descriptors of their children; leaves hold NONE.
func (s *Schema) ToHash() *hash.Hash {
	return levelToHash(&s.root)
}

func levelToHash(lvl *ordered.Map[*entry]) *hash.Hash {
	h := hash.New()
	for key, e := range lvl.All() {
		v := hash.None()
		if !e.elem.IsLeaf() {
			v = hash.Tree(levelToHash(&e.children))
		}
		n, _ := h.Insert(key, v)
		describe(n.Attributes(), &e.elem)
	}
	return h
}

func describe(a *hash.Attributes, e *Element) {
	a.Set(AttrNodeType, hash.String(e.NodeType.String()))
	a.Set(AttrValueType, hash.String(e.ValueKind.String()))
	a.Set(AttrAccessMode, hash.String(e.Access.String()))
	a.Set(AttrAssignment, hash.String(e.Assignment.String()))

	setValue := func(name string, v hash.Value) {
		if v.IsValid() {
			a.Set(name, v.Clone())
		}
	}
	setString := func(name, v string) {
		if v != "" {
			a.Set(name, hash.String(v))
		}
	}
	setStrings := func(name string, v []string) {
		if len(v) > 0 {
			a.Set(name, hash.VectorString(v))
		}
	}

	setValue(AttrDefaultValue, e.Default)
	setValue(AttrMinInc, e.MinInc)
	setValue(AttrMaxInc, e.MaxInc)
	setValue(AttrMinExc, e.MinExc)
	setValue(AttrMaxExc, e.MaxExc)
	if e.MinSize != Unset {
		a.Set(AttrMinSize, hash.Int32(int32(e.MinSize)))
	}
	if e.MaxSize != Unset {
		a.Set(AttrMaxSize, hash.Int32(int32(e.MaxSize)))
	}
	if len(e.Options) > 0 {
		if opts, err := hash.VectorFrom(e.Options); err == nil {
			a.Set(AttrOptions, opts)
		}
	}
	setStrings(AttrAllowedStates, e.AllowedStates)
	setString(AttrUnit, e.Unit)
	setString(AttrDescription, e.Description)
	setString(AttrDisplayedName, e.DisplayedName)
	setString(AttrAlias, e.Alias)
	setStrings(AttrTags, e.Tags)
	if e.RowSchema != nil {
		a.Set(AttrRowSchema, hash.Tree(e.RowSchema.ToHash()))
	}
	setStrings(AttrRestrictions, e.Restrictions.Names())
	if e.SkipValidation {
		a.Set(AttrSkipValidation, hash.Bool(true))
	}
}

// FromHash rebuilds a schema from a descriptor hash made by ToHash. Every
// element passes the same checks as a builder Commit.
func FromHash(rootName string, h *hash.Hash) (*Schema, error) {
	s := New(rootName)
	if err := s.addDescribed("", h); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) addDescribed(prefix string, h *hash.Hash) error {
	for key, n := range h.All() {
		path := hash.JoinPath(prefix, key)
		e, err := readElement(path, n.Attributes())
		if err != nil {
			return err
		}
		if err := s.commit(e); err != nil {
			return err
		}
		if e.IsLeaf() {
			continue
		}
		children, ok := n.Hash()
		if !ok {
			return errs.New(errs.SchemaError, path, "%s descriptor must hold a hash", e.NodeType)
		}
		if err := s.addDescribed(path, children); err != nil {
			return err
		}
	}
	return nil
}

func readElement(path string, a *hash.Attributes) (Element, error) {
	e := newElement()
	e.Path = path
	fail := func(format string, args ...any) (Element, error) {
		return Element{}, errs.New(errs.SchemaError, path, format, args...)
	}

	str := func(name string) (string, error) {
		v, ok := a.Get(name)
		if !ok {
			return "", nil
		}
		return hash.Extract[string](v)
	}
	strs := func(name string) ([]string, error) {
		v, ok := a.Get(name)
		if !ok {
			return nil, nil
		}
		return hash.Extract[[]string](v)
	}
	size := func(name string) (int, error) {
		v, ok := a.Get(name)
		if !ok {
			return Unset, nil
		}
		n, err := v.Convert(hash.KindInt32)
		if err != nil {
			return 0, err
		}
		i, _ := hash.Extract[int32](n)
		return int(i), nil
	}

	nt, err := str(AttrNodeType)
	if err != nil {
		return fail("%s: %v", AttrNodeType, err)
	}
	switch nt {
	case "leaf", "":
		e.NodeType = LeafNode
	case "node":
		e.NodeType = HashNode
	case "choice":
		e.NodeType = ChoiceNode
	case "list":
		e.NodeType = ListNode
	default:
		return fail("unknown node type %q", nt)
	}

	vt, err := str(AttrValueType)
	if err != nil {
		return fail("%s: %v", AttrValueType, err)
	}
	kind, ok := hash.ParseKind(vt)
	if !ok {
		return fail("unknown value type %q", vt)
	}
	e.ValueKind = kind

	am, err := str(AttrAccessMode)
	if err != nil {
		return fail("%s: %v", AttrAccessMode, err)
	}
	if e.Access, ok = ParseAccess(am); !ok {
		return fail("unknown access mode %q", am)
	}
	as, err := str(AttrAssignment)
	if err != nil {
		return fail("%s: %v", AttrAssignment, err)
	}
	if e.Assignment, ok = ParseAssignment(as); !ok {
		return fail("unknown assignment %q", as)
	}

	e.Default, _ = a.Get(AttrDefaultValue)
	e.MinInc, _ = a.Get(AttrMinInc)
	e.MaxInc, _ = a.Get(AttrMaxInc)
	e.MinExc, _ = a.Get(AttrMinExc)
	e.MaxExc, _ = a.Get(AttrMaxExc)
	if opts, ok := a.Get(AttrOptions); ok {
		if !opts.Kind().IsVector() {
			return fail("%s must be a vector", AttrOptions)
		}
		e.Options = opts.Elements()
	}
	if e.MinSize, err = size(AttrMinSize); err != nil {
		return fail("%s: %v", AttrMinSize, err)
	}
	if e.MaxSize, err = size(AttrMaxSize); err != nil {
		return fail("%s: %v", AttrMaxSize, err)
	}

	for name, dst := range map[string]*string{
		AttrUnit:          &e.Unit,
		AttrDescription:   &e.Description,
		AttrDisplayedName: &e.DisplayedName,
		AttrAlias:         &e.Alias,
	} {
		if *dst, err = str(name); err != nil {
			return fail("%s: %v", name, err)
		}
	}
	if e.AllowedStates, err = strs(AttrAllowedStates); err != nil {
		return fail("%s: %v", AttrAllowedStates, err)
	}
	if e.Tags, err = strs(AttrTags); err != nil {
		return fail("%s: %v", AttrTags, err)
	}
	names, err := strs(AttrRestrictions)
	if err != nil {
		return fail("%s: %v", AttrRestrictions, err)
	}
	for _, name := range names {
		r, ok := ParseRestriction(name)
		if !ok {
			return fail("unknown restriction %q", name)
		}
		e.Restrictions |= r
	}
	if v, ok := a.Get(AttrSkipValidation); ok {
		if e.SkipValidation, err = hash.Extract[bool](v); err != nil {
			return fail("%s: %v", AttrSkipValidation, err)
		}
	}
	if v, ok := a.Get(AttrRowSchema); ok {
		rows, err := hash.Extract[*hash.Hash](v)
		if err != nil {
			return fail("%s: %v", AttrRowSchema, err)
		}
		if e.RowSchema, err = FromHash("", rows); err != nil {
			return Element{}, err
		}
	}
	return e, nil
}
