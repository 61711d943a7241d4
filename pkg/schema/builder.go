package schema

import (
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// Scalar lists the Go types a typed leaf can be declared with.
type Scalar interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128 | string | time.Time
}

// VectorElem lists the Go element types a typed vector can be declared with.
type VectorElem interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | string
}

func kindFor[T Scalar]() hash.Kind {
	var zero T
	v, _ := hash.ValueOf(zero)
	return v.Kind()
}

func scalarValue[T Scalar](v T) hash.Value {
	out, _ := hash.ValueOf(v)
	return out
}

func scalarValues[T Scalar](vs []T) []hash.Value {
	out := make([]hash.Value, len(vs))
	for i, v := range vs {
		out[i] = scalarValue(v)
	}
	return out
}

// base holds what every builder shares. B is the concrete builder type
// returned by the chained setters.
type base[B any] struct {
	s    *Schema
	self B
	elem Element
	err  error
}

func (b *base[B]) init(s *Schema, self B, nt NodeType, kind hash.Kind) {
	b.s = s
	b.self = self
	b.elem = newElement()
	b.elem.NodeType = nt
	b.elem.ValueKind = kind
}

// fail records the first error; Commit reports it.
func (b *base[B]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Key sets the full dotted path of the element.
func (b *base[B]) Key(path string) B {
	b.elem.Path = path
	return b.self
}

func (b *base[B]) Description(text string) B {
	b.elem.Description = text
	return b.self
}

func (b *base[B]) DisplayedName(name string) B {
	b.elem.DisplayedName = name
	return b.self
}

// Alias sets an alternative name resolvable with Schema.KeyForAlias.
func (b *base[B]) Alias(alias string) B {
	b.elem.Alias = alias
	return b.self
}

func (b *base[B]) Tags(tags ...string) B {
	b.elem.Tags = append(b.elem.Tags, tags...)
	return b.self
}

// OverwriteRestrictions forbids later overwrites of the given properties.
func (b *base[B]) OverwriteRestrictions(r Restrictions) B {
	b.elem.Restrictions |= r
	return b.self
}

// Commit adds the element to the schema, or overwrites the element already
// declared at its path. Nothing changes when it fails.
func (b *base[B]) Commit() error {
	if b.err != nil {
		return errs.Wrap(errs.SchemaError, b.elem.Path, b.err, "invalid declaration")
	}
	return b.s.commit(b.elem.clone())
}

// valued adds the properties of elements that carry a configured value.
type valued[B any] struct {
	base[B]
}

// Mandatory requires the element in every configuration.
func (b *valued[B]) Mandatory() B {
	b.elem.Assignment = Mandatory
	return b.self
}

// Optional lets the element be omitted; its default is injected.
func (b *valued[B]) Optional() B {
	b.elem.Assignment = Optional
	return b.self
}

// Internal reserves the element for its owner.
func (b *valued[B]) Internal() B {
	b.elem.Assignment = Internal
	return b.self
}

// Init allows the element only in the initial configuration.
func (b *valued[B]) Init() B {
	b.elem.Access = AccessInit
	return b.self
}

func (b *valued[B]) Reconfigurable() B {
	b.elem.Access = AccessReconfigurable
	return b.self
}

func (b *valued[B]) ReadOnly() B {
	b.elem.Access = AccessReadOnly
	return b.self
}

// AllowedStates restricts writes to the given lifecycle states.
func (b *valued[B]) AllowedStates(states ...string) B {
	b.elem.AllowedStates = append(b.elem.AllowedStates, states...)
	return b.self
}

func (b *valued[B]) Unit(unit string) B {
	b.elem.Unit = unit
	return b.self
}

// SkipValidation copies supplied values through unchecked.
func (b *valued[B]) SkipValidation() B {
	b.elem.SkipValidation = true
	return b.self
}

// MinSize sets the minimum element count of a vector, table or list.
func (b *valued[B]) MinSize(n int) B {
	b.elem.MinSize = n
	return b.self
}

// MaxSize sets the maximum element count of a vector, table or list.
func (b *valued[B]) MaxSize(n int) B {
	b.elem.MaxSize = n
	return b.self
}

// LeafBuilder declares a scalar leaf of Go type T.
type LeafBuilder[T Scalar] struct {
	valued[*LeafBuilder[T]]
}

// Leaf starts the declaration of a scalar leaf whose kind follows T.
func Leaf[T Scalar](s *Schema) *LeafBuilder[T] {
	b := &LeafBuilder[T]{}
	b.init(s, b, LeafNode, kindFor[T]())
	return b
}

func (b *LeafBuilder[T]) DefaultValue(v T) *LeafBuilder[T] {
	b.elem.Default = scalarValue(v)
	return b
}

// Options restricts the value to one of opts.
func (b *LeafBuilder[T]) Options(opts ...T) *LeafBuilder[T] {
	b.elem.Options = append(b.elem.Options, scalarValues(opts)...)
	return b
}

func (b *LeafBuilder[T]) MinInc(v T) *LeafBuilder[T] {
	b.elem.MinInc = scalarValue(v)
	return b
}

func (b *LeafBuilder[T]) MaxInc(v T) *LeafBuilder[T] {
	b.elem.MaxInc = scalarValue(v)
	return b
}

func (b *LeafBuilder[T]) MinExc(v T) *LeafBuilder[T] {
	b.elem.MinExc = scalarValue(v)
	return b
}

func (b *LeafBuilder[T]) MaxExc(v T) *LeafBuilder[T] {
	b.elem.MaxExc = scalarValue(v)
	return b
}

func BoolElement(s *Schema) *LeafBuilder[bool]             { return Leaf[bool](s) }
func Int8Element(s *Schema) *LeafBuilder[int8]             { return Leaf[int8](s) }
func Int16Element(s *Schema) *LeafBuilder[int16]           { return Leaf[int16](s) }
func Int32Element(s *Schema) *LeafBuilder[int32]           { return Leaf[int32](s) }
func Int64Element(s *Schema) *LeafBuilder[int64]           { return Leaf[int64](s) }
func Uint8Element(s *Schema) *LeafBuilder[uint8]           { return Leaf[uint8](s) }
func Uint16Element(s *Schema) *LeafBuilder[uint16]         { return Leaf[uint16](s) }
func Uint32Element(s *Schema) *LeafBuilder[uint32]         { return Leaf[uint32](s) }
func Uint64Element(s *Schema) *LeafBuilder[uint64]         { return Leaf[uint64](s) }
func Float32Element(s *Schema) *LeafBuilder[float32]       { return Leaf[float32](s) }
func Float64Element(s *Schema) *LeafBuilder[float64]       { return Leaf[float64](s) }
func Complex64Element(s *Schema) *LeafBuilder[complex64]   { return Leaf[complex64](s) }
func Complex128Element(s *Schema) *LeafBuilder[complex128] { return Leaf[complex128](s) }
func StringElement(s *Schema) *LeafBuilder[string]         { return Leaf[string](s) }
func TimestampElement(s *Schema) *LeafBuilder[time.Time]   { return Leaf[time.Time](s) }

// VectorBuilder declares a vector leaf with elements of Go type T.
type VectorBuilder[T VectorElem] struct {
	valued[*VectorBuilder[T]]
}

// Vector starts the declaration of a vector leaf whose kind follows T.
func Vector[T VectorElem](s *Schema) *VectorBuilder[T] {
	var zero T
	elem, _ := hash.ValueOf(zero)
	b := &VectorBuilder[T]{}
	b.init(s, b, LeafNode, hash.VectorOf(elem.Kind()))
	return b
}

func (b *VectorBuilder[T]) DefaultValue(v []T) *VectorBuilder[T] {
	d, err := hash.MakeValue(b.elem.ValueKind, v)
	if err != nil {
		b.fail(err)
		return b
	}
	b.elem.Default = d
	return b
}

func VectorBoolElement(s *Schema) *VectorBuilder[bool]       { return Vector[bool](s) }
func VectorInt8Element(s *Schema) *VectorBuilder[int8]       { return Vector[int8](s) }
func VectorInt16Element(s *Schema) *VectorBuilder[int16]     { return Vector[int16](s) }
func VectorInt32Element(s *Schema) *VectorBuilder[int32]     { return Vector[int32](s) }
func VectorInt64Element(s *Schema) *VectorBuilder[int64]     { return Vector[int64](s) }
func VectorUint8Element(s *Schema) *VectorBuilder[uint8]     { return Vector[uint8](s) }
func VectorUint16Element(s *Schema) *VectorBuilder[uint16]   { return Vector[uint16](s) }
func VectorUint32Element(s *Schema) *VectorBuilder[uint32]   { return Vector[uint32](s) }
func VectorUint64Element(s *Schema) *VectorBuilder[uint64]   { return Vector[uint64](s) }
func VectorFloat32Element(s *Schema) *VectorBuilder[float32] { return Vector[float32](s) }
func VectorFloat64Element(s *Schema) *VectorBuilder[float64] { return Vector[float64](s) }
func VectorStringElement(s *Schema) *VectorBuilder[string]   { return Vector[string](s) }

// NodeBuilder declares a node grouping child elements.
type NodeBuilder struct {
	base[*NodeBuilder]
}

// NodeElement starts the declaration of a node. Children are declared
// afterwards with keys below the node's path.
func NodeElement(s *Schema) *NodeBuilder {
	b := &NodeBuilder{}
	b.init(s, b, HashNode, hash.KindHash)
	return b
}

// ChoiceBuilder declares a choice between child nodes.
type ChoiceBuilder struct {
	valued[*ChoiceBuilder]
}

// ChoiceElement starts the declaration of a choice. Its options are the
// nodes declared below its path; a configuration selects exactly one.
func ChoiceElement(s *Schema) *ChoiceBuilder {
	b := &ChoiceBuilder{}
	b.init(s, b, ChoiceNode, hash.KindHash)
	return b
}

// DefaultValue names the option selected when the choice is absent.
func (b *ChoiceBuilder) DefaultValue(option string) *ChoiceBuilder {
	b.elem.Default = hash.String(option)
	return b
}

// ListBuilder declares an ordered list of child nodes.
type ListBuilder struct {
	valued[*ListBuilder]
}

// ListElement starts the declaration of a list. Its options are the nodes
// declared below its path; a configuration selects any sequence of them.
func ListElement(s *Schema) *ListBuilder {
	b := &ListBuilder{}
	b.init(s, b, ListNode, hash.KindVectorHash)
	return b
}

// DefaultValue names the options selected when the list is absent.
func (b *ListBuilder) DefaultValue(options ...string) *ListBuilder {
	b.elem.Default = hash.VectorString(options)
	return b
}

// TableBuilder declares a vector of hashes whose rows follow a row schema.
type TableBuilder struct {
	valued[*TableBuilder]
}

// TableElement starts the declaration of a table.
func TableElement(s *Schema) *TableBuilder {
	b := &TableBuilder{}
	b.init(s, b, LeafNode, hash.KindVectorHash)
	return b
}

// RowSchema sets the schema every row is validated against.
func (b *TableBuilder) RowSchema(rows *Schema) *TableBuilder {
	b.elem.RowSchema = rows
	return b
}

func (b *TableBuilder) DefaultValue(rows ...*hash.Hash) *TableBuilder {
	b.elem.Default = hash.Trees(rows)
	return b
}

// RawBuilder declares an element of a kind only known at run time. Values
// are converted to the declared kind; conversion failures surface at Commit.
type RawBuilder struct {
	valued[*RawBuilder]
}

// ElementOf starts the declaration of an element of the given kind. HASH
// declares a node; every other kind declares a leaf.
func ElementOf(s *Schema, kind hash.Kind) *RawBuilder {
	b := &RawBuilder{}
	nt := LeafNode
	if kind == hash.KindHash {
		nt = HashNode
	}
	b.init(s, b, nt, kind)
	return b
}

func (b *RawBuilder) convert(v any) hash.Value {
	out, err := hash.MakeValue(b.elem.ValueKind, v)
	if err != nil {
		b.fail(err)
	}
	return out
}

func (b *RawBuilder) DefaultValue(v any) *RawBuilder {
	b.elem.Default = b.convert(v)
	return b
}

func (b *RawBuilder) Options(opts ...any) *RawBuilder {
	for _, o := range opts {
		b.elem.Options = append(b.elem.Options, b.convert(o))
	}
	return b
}

func (b *RawBuilder) MinInc(v any) *RawBuilder {
	b.elem.MinInc = b.convert(v)
	return b
}

func (b *RawBuilder) MaxInc(v any) *RawBuilder {
	b.elem.MaxInc = b.convert(v)
	return b
}

func (b *RawBuilder) MinExc(v any) *RawBuilder {
	b.elem.MinExc = b.convert(v)
	return b
}

func (b *RawBuilder) MaxExc(v any) *RawBuilder {
	b.elem.MaxExc = b.convert(v)
	return b
}

// RowSchema turns a VECTOR_HASH leaf into a table.
func (b *RawBuilder) RowSchema(rows *Schema) *RawBuilder {
	b.elem.RowSchema = rows
	return b
}

// Access sets the access mode directly.
func (b *RawBuilder) Access(a Access) *RawBuilder {
	b.elem.Access = a
	return b
}

// Assignment sets the assignment directly.
func (b *RawBuilder) Assignment(a Assignment) *RawBuilder {
	b.elem.Assignment = a
	return b
}
