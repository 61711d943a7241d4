package schema

import (
	"slices"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// commit inserts e, or overwrites the element at its path. All checks run
// before anything is modified.
func (s *Schema) commit(e Element) error {
	if e.Path == "" {
		return errs.New(errs.SchemaError, "", "element without key")
	}
	segs := strings.Split(e.Path, ".")
	for _, seg := range segs {
		if !hash.ValidKey(seg) {
			return errs.New(errs.SchemaError, e.Path, "invalid key segment %q", seg)
		}
	}
	e.Key = segs[len(segs)-1]
	if !e.ValueKind.IsValid() {
		return errs.New(errs.SchemaError, e.Path, "element without type")
	}

	lvl := &s.root
	if len(segs) > 1 {
		parentPath := strings.Join(segs[:len(segs)-1], ".")
		parent, ok := s.lookup(parentPath)
		if !ok {
			return errs.New(errs.SchemaError, e.Path, "parent %s is not declared", parentPath)
		}
		switch parent.elem.NodeType {
		case LeafNode:
			return errs.New(errs.SchemaError, e.Path, "parent %s is a leaf", parentPath)
		case ChoiceNode, ListNode:
			if e.NodeType != HashNode {
				return errs.New(errs.SchemaError, e.Path, "options of %s %s must be nodes", parent.elem.NodeType, parentPath)
			}
		}
		lvl = &parent.children
	}

	if err := checkElement(&e); err != nil {
		return err
	}

	old, exists := lvl.Get(e.Key)
	if exists {
		if err := checkOverwrite(&old.elem, &e); err != nil {
			return err
		}
	}
	if e.Alias != "" {
		if path, ok := s.aliases[e.Alias]; ok && path != e.Path {
			return errs.New(errs.SchemaError, e.Path, "alias %q already used by %s", e.Alias, path)
		}
	}

	if exists {
		if old.elem.Alias != "" && old.elem.Alias != e.Alias {
			delete(s.aliases, old.elem.Alias)
		}
		old.elem = e
	} else {
		lvl.Set(e.Key, &entry{elem: e})
	}
	return s.addAlias(&e)
}

// checkElement validates an element on its own.
func checkElement(e *Element) error {
	fail := func(format string, args ...any) error {
		return errs.New(errs.SchemaError, e.Path, format, args...)
	}

	switch e.NodeType {
	case LeafNode:
		if e.ValueKind == hash.KindHash {
			return fail("a HASH element must be a node")
		}
		if e.RowSchema != nil && e.ValueKind != hash.KindVectorHash {
			return fail("row schema on %s", e.ValueKind)
		}
	case HashNode, ChoiceNode, ListNode:
		want := hash.KindHash
		if e.NodeType == ListNode {
			want = hash.KindVectorHash
		}
		if e.ValueKind != want {
			return fail("%s must have kind %s, not %s", e.NodeType, want, e.ValueKind)
		}
		if len(e.Options) > 0 || e.MinInc.IsValid() || e.MaxInc.IsValid() || e.MinExc.IsValid() || e.MaxExc.IsValid() {
			return fail("options and bounds apply to leaves only")
		}
		if e.RowSchema != nil {
			return fail("row schema on %s", e.NodeType)
		}
	default:
		return fail("unknown node type %d", e.NodeType)
	}

	if e.HasDefault() {
		want := e.ValueKind
		switch e.NodeType {
		case HashNode:
			return fail("a node has no default")
		case ChoiceNode:
			want = hash.KindString
		case ListNode:
			want = hash.KindVectorString
		}
		if e.Default.Kind() != want {
			return fail("default of kind %s, want %s", e.Default.Kind(), want)
		}
	}

	if len(e.Options) > 0 {
		if !e.ValueKind.IsScalar() || hash.VectorOf(e.ValueKind) == hash.KindUnknown {
			return fail("options are not supported for %s", e.ValueKind)
		}
		for _, o := range e.Options {
			if o.Kind() != e.ValueKind {
				return fail("option %s of kind %s, want %s", o, o.Kind(), e.ValueKind)
			}
		}
	}

	bounds := []hash.Value{e.MinInc, e.MaxInc, e.MinExc, e.MaxExc}
	for _, b := range bounds {
		if !b.IsValid() {
			continue
		}
		if !e.ValueKind.IsNumeric() {
			return fail("bounds are not supported for %s", e.ValueKind)
		}
		if b.Kind() != e.ValueKind {
			return fail("bound %s of kind %s, want %s", b, b.Kind(), e.ValueKind)
		}
	}
	if err := checkRange(e); err != nil {
		return err
	}

	if e.MinSize != Unset || e.MaxSize != Unset {
		if !e.ValueKind.IsVector() {
			return fail("size bounds are not supported for %s", e.ValueKind)
		}
		if e.MinSize < Unset || e.MaxSize < Unset {
			return fail("negative size bound")
		}
		if e.MinSize != Unset && e.MaxSize != Unset && e.MinSize > e.MaxSize {
			return fail("minSize %d above maxSize %d", e.MinSize, e.MaxSize)
		}
	}

	if e.HasDefault() && e.NodeType != ChoiceNode {
		if v := e.violation(e.Default); v != nil {
			return fail("default: %s", v.Message)
		}
	}
	return nil
}

// checkRange rejects bounds that admit no value.
func checkRange(e *Element) error {
	pairs := []struct {
		lo, hi   hash.Value
		strictly bool
	}{
		{e.MinInc, e.MaxInc, false},
		{e.MinInc, e.MaxExc, true},
		{e.MinExc, e.MaxInc, true},
		{e.MinExc, e.MaxExc, true},
	}
	for _, p := range pairs {
		if !p.lo.IsValid() || !p.hi.IsValid() {
			continue
		}
		c, ok := hash.Compare(p.lo, p.hi)
		if !ok || c > 0 || (p.strictly && c == 0) {
			return errs.New(errs.SchemaError, e.Path, "minimum %s above maximum %s", p.lo, p.hi)
		}
	}
	return nil
}

// checkOverwrite checks that next only changes what an overwrite may
// change, then folds the old restrictions and row schema into next.
func checkOverwrite(old, next *Element) error {
	fail := func(format string, args ...any) error {
		return errs.New(errs.SchemaError, next.Path, format, args...)
	}
	if old.NodeType != next.NodeType {
		return fail("cannot change node type from %s to %s", old.NodeType, next.NodeType)
	}
	if old.ValueKind != next.ValueKind {
		return fail("cannot change kind from %s to %s", old.ValueKind, next.ValueKind)
	}
	if old.Assignment == Mandatory && next.Assignment != Mandatory {
		return fail("cannot relax mandatory to %s", next.Assignment)
	}
	if next.RowSchema == nil {
		next.RowSchema = old.RowSchema
	} else if old.RowSchema != nil && old.RowSchema != next.RowSchema {
		return fail("cannot replace the row schema")
	}
	if old.SkipValidation != next.SkipValidation {
		return fail("cannot change skipValidation")
	}

	changes := []struct {
		r       Restrictions
		changed bool
	}{
		{RestrictDefault, !sameValue(old.Default, next.Default)},
		{RestrictMinInc, !sameValue(old.MinInc, next.MinInc)},
		{RestrictMaxInc, !sameValue(old.MaxInc, next.MaxInc)},
		{RestrictMinExc, !sameValue(old.MinExc, next.MinExc)},
		{RestrictMaxExc, !sameValue(old.MaxExc, next.MaxExc)},
		{RestrictMinSize, old.MinSize != next.MinSize},
		{RestrictMaxSize, old.MaxSize != next.MaxSize},
		{RestrictOptions, !slices.EqualFunc(old.Options, next.Options, hash.Value.Equal)},
		{RestrictAllowedStates, !slices.Equal(old.AllowedStates, next.AllowedStates)},
		{RestrictAccess, old.Access != next.Access},
		{RestrictAssignment, old.Assignment != next.Assignment},
		{RestrictDescription, old.Description != next.Description},
		{RestrictDisplayedName, old.DisplayedName != next.DisplayedName},
		{RestrictUnit, old.Unit != next.Unit},
		{RestrictAlias, old.Alias != next.Alias},
		{RestrictTags, !slices.Equal(old.Tags, next.Tags)},
		{RestrictRestrictions, old.Restrictions|next.Restrictions != old.Restrictions},
	}
	for _, c := range changes {
		if c.changed && old.Restrictions&c.r != 0 {
			return fail("%s may not be overwritten", c.r.Names()[0])
		}
	}
	next.Restrictions |= old.Restrictions
	return nil
}

func sameValue(a, b hash.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	return a.Equal(b)
}

// OverwriteBuilder changes properties of an element that is already
// declared. Unchanged properties keep their values.
type OverwriteBuilder struct {
	s    *Schema
	elem Element
	err  error
}

// Overwrite starts an overwrite in s.
func Overwrite(s *Schema) *OverwriteBuilder {
	return &OverwriteBuilder{s: s}
}

func (o *OverwriteBuilder) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// Key selects the element to overwrite.
func (o *OverwriteBuilder) Key(path string) *OverwriteBuilder {
	e, err := o.s.Element(path)
	if err != nil {
		o.fail(errs.New(errs.SchemaError, path, "no element to overwrite"))
		return o
	}
	o.elem = e
	return o
}

func (o *OverwriteBuilder) convert(kind hash.Kind, v any) hash.Value {
	out, err := hash.MakeValue(kind, v)
	if err != nil {
		o.fail(errs.Wrap(errs.SchemaError, o.elem.Path, err, "overwrite"))
	}
	return out
}

// defaultKind is the kind a default of the element must have.
func (o *OverwriteBuilder) defaultKind() hash.Kind {
	switch o.elem.NodeType {
	case ChoiceNode:
		return hash.KindString
	case ListNode:
		return hash.KindVectorString
	}
	return o.elem.ValueKind
}

// SetNewDefaultValue replaces the default. v is converted to the element's
// kind.
func (o *OverwriteBuilder) SetNewDefaultValue(v any) *OverwriteBuilder {
	o.elem.Default = o.convert(o.defaultKind(), v)
	return o
}

func (o *OverwriteBuilder) SetNewMinInc(v any) *OverwriteBuilder {
	o.elem.MinInc = o.convert(o.elem.ValueKind, v)
	return o
}

func (o *OverwriteBuilder) SetNewMaxInc(v any) *OverwriteBuilder {
	o.elem.MaxInc = o.convert(o.elem.ValueKind, v)
	return o
}

func (o *OverwriteBuilder) SetNewMinExc(v any) *OverwriteBuilder {
	o.elem.MinExc = o.convert(o.elem.ValueKind, v)
	return o
}

func (o *OverwriteBuilder) SetNewMaxExc(v any) *OverwriteBuilder {
	o.elem.MaxExc = o.convert(o.elem.ValueKind, v)
	return o
}

func (o *OverwriteBuilder) SetNewMinSize(n int) *OverwriteBuilder {
	o.elem.MinSize = n
	return o
}

func (o *OverwriteBuilder) SetNewMaxSize(n int) *OverwriteBuilder {
	o.elem.MaxSize = n
	return o
}

// SetNewOptions replaces the options. Each option is converted to the
// element's kind.
func (o *OverwriteBuilder) SetNewOptions(opts ...any) *OverwriteBuilder {
	o.elem.Options = o.elem.Options[:0:0]
	for _, v := range opts {
		o.elem.Options = append(o.elem.Options, o.convert(o.elem.ValueKind, v))
	}
	return o
}

func (o *OverwriteBuilder) SetNewAllowedStates(states ...string) *OverwriteBuilder {
	o.elem.AllowedStates = slices.Clone(states)
	return o
}

func (o *OverwriteBuilder) SetNowInit() *OverwriteBuilder {
	o.elem.Access = AccessInit
	return o
}

func (o *OverwriteBuilder) SetNowReconfigurable() *OverwriteBuilder {
	o.elem.Access = AccessReconfigurable
	return o
}

func (o *OverwriteBuilder) SetNowReadOnly() *OverwriteBuilder {
	o.elem.Access = AccessReadOnly
	return o
}

func (o *OverwriteBuilder) SetNowMandatory() *OverwriteBuilder {
	o.elem.Assignment = Mandatory
	return o
}

func (o *OverwriteBuilder) SetNowOptional() *OverwriteBuilder {
	o.elem.Assignment = Optional
	return o
}

func (o *OverwriteBuilder) SetNowInternal() *OverwriteBuilder {
	o.elem.Assignment = Internal
	return o
}

func (o *OverwriteBuilder) SetNewDescription(text string) *OverwriteBuilder {
	o.elem.Description = text
	return o
}

func (o *OverwriteBuilder) SetNewDisplayedName(name string) *OverwriteBuilder {
	o.elem.DisplayedName = name
	return o
}

func (o *OverwriteBuilder) SetNewUnit(unit string) *OverwriteBuilder {
	o.elem.Unit = unit
	return o
}

func (o *OverwriteBuilder) SetNewAlias(alias string) *OverwriteBuilder {
	o.elem.Alias = alias
	return o
}

func (o *OverwriteBuilder) SetNewTags(tags ...string) *OverwriteBuilder {
	o.elem.Tags = slices.Clone(tags)
	return o
}

// SetNewOverwriteRestrictions adds restrictions; existing ones stay.
func (o *OverwriteBuilder) SetNewOverwriteRestrictions(r Restrictions) *OverwriteBuilder {
	o.elem.Restrictions |= r
	return o
}

// Commit applies the overwrite. Nothing changes when it fails.
func (o *OverwriteBuilder) Commit() error {
	if o.err != nil {
		return o.err
	}
	if o.elem.Path == "" {
		return errs.New(errs.SchemaError, "", "overwrite without key")
	}
	return o.s.commit(o.elem)
}
