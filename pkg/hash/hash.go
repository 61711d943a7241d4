package hash

import (
	"errors"
	"iter"
	"slices"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/ordered"
)

// Container is the recursive, path-addressed shape shared by data hashes
// and schemas.
type Container interface {
	Has(path string) bool
	Keys() []string
	Paths() []string
	Len() int
}

var _ Container = (*Hash)(nil)

// Hash is an ordered tree of attributed nodes. Keys are unique per level and
// keep their insertion order.
//
// A Hash is not safe for concurrent mutation. Concurrent readers are fine as
// long as nobody writes.
type Hash struct {
	nodes ordered.Map[*Node]
}

// New creates an empty hash.
func New() *Hash {
	return &Hash{}
}

// From builds a hash from alternating path and value arguments. Values go
// through ValueOf.
func From(pairs ...any) (*Hash, error) {
	if len(pairs)%2 != 0 {
		return nil, errs.New(errs.TypeMismatch, "", "odd number of arguments")
	}
	h := New()
	for i := 0; i < len(pairs); i += 2 {
		path, ok := pairs[i].(string)
		if !ok {
			return nil, errs.New(errs.TypeMismatch, "", "argument %d is %T, want path string", i, pairs[i])
		}
		v, err := ValueOf(pairs[i+1])
		if err != nil {
			return nil, located(err, path)
		}
		if err := h.Set(path, v); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// MustFrom is like From but panics on error. It is meant for literals in
// tests and examples.
func MustFrom(pairs ...any) *Hash {
	h, err := From(pairs...)
	if err != nil {
		panic(err)
	}
	return h
}

// Len returns the number of keys at the top level.
func (h *Hash) Len() int {
	if h == nil {
		return 0
	}
	return h.nodes.Len()
}

// Empty reports whether the hash has no keys.
func (h *Hash) Empty() bool { return h.Len() == 0 }

// Keys returns the top-level keys in insertion order.
func (h *Hash) Keys() []string {
	if h == nil {
		return nil
	}
	return h.nodes.Keys()
}

// All iterates the top-level nodes in insertion order.
func (h *Hash) All() iter.Seq2[string, *Node] {
	if h == nil {
		return func(func(string, *Node) bool) {}
	}
	return h.nodes.All()
}

// Clear removes every key.
func (h *Hash) Clear() { h.nodes.Clear() }

// Clone returns a deep copy.
func (h *Hash) Clone() *Hash {
	out := New()
	for key, n := range h.All() {
		out.nodes.Set(key, n.clone())
	}
	return out
}

type setOptions struct {
	keepAttributes bool
}

// SetOption adjusts Set.
type SetOption func(*setOptions)

// KeepAttributes keeps the attributes of a replaced node.
func KeepAttributes() SetOption {
	return func(o *setOptions) { o.keepAttributes = true }
}

// Set stores v at path, creating intermediate hashes. A replaced node loses
// its attributes unless KeepAttributes is given. Hash values are copied, so a
// hash never contains itself.
//
// Writing through a non-hash intermediate fails with TypeMismatch and leaves
// the hash unchanged. An index equal to the vector length appends.
func (h *Hash) Set(path string, v Value, opts ...SetOption) error {
	if !v.IsValid() {
		return errs.New(errs.TypeMismatch, path, "invalid value")
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	last := segs[len(segs)-1]
	if last.index >= 0 && v.kind != KindHash {
		return errs.New(errs.TypeMismatch, path, "vector element must be %s, got %s", KindHash, v.kind)
	}
	if err := h.checkWritable(path, segs); err != nil {
		return err
	}
	v = v.Clone()

	cur := h
	for _, seg := range segs[:len(segs)-1] {
		cur = cur.childForWrite(seg)
	}
	if last.index >= 0 {
		n := cur.childNode(last.key, Trees(nil))
		vec := slices.Clone(n.value.data.([]*Hash))
		elem := v.data.(*Hash)
		if last.index == len(vec) {
			vec = append(vec, elem)
		} else {
			vec[last.index] = elem
		}
		n.value = Value{kind: KindVectorHash, data: vec}
		return nil
	}
	if n, ok := cur.nodes.Get(last.key); ok {
		n.value = v
		if !o.keepAttributes {
			n.attrs = Attributes{}
		}
		return nil
	}
	cur.nodes.Set(last.key, &Node{key: last.key, value: v})
	return nil
}

// Insert appends a new key at this level without copying v, and returns the
// new node. It is meant for decoders that build trees bottom-up: the hash takes
// ownership of any nested hashes in v. Insert fails with TypeMismatch if the
// key is invalid or already present.
func (h *Hash) Insert(key string, v Value) (*Node, error) {
	if !ValidKey(key) {
		return nil, errs.New(errs.TypeMismatch, key, "invalid key")
	}
	if !v.IsValid() {
		return nil, errs.New(errs.TypeMismatch, key, "invalid value")
	}
	if h.nodes.Has(key) {
		return nil, errs.New(errs.TypeMismatch, key, "duplicate key")
	}
	if sub, ok := v.data.(*Hash); ok && sub == h {
		return nil, errs.New(errs.TypeMismatch, key, "hash cannot contain itself")
	}
	n := &Node{key: key, value: v}
	h.nodes.Set(key, n)
	return n, nil
}

// checkWritable verifies that Set can complete without touching the hash.
func (h *Hash) checkWritable(path string, segs []segment) error {
	cur := h
	for i, seg := range segs {
		last := i == len(segs)-1
		n, ok := cur.nodes.Get(seg.key)
		if !ok {
			if seg.index > 0 {
				return errs.New(errs.PathNotFound, path, "index %d beyond end of %q", seg.index, seg.key)
			}
			return nil
		}
		if seg.index >= 0 {
			vec, ok := n.value.data.([]*Hash)
			if !ok {
				return errs.New(errs.TypeMismatch, path, "%q is %s, not %s", seg.key, n.value.kind, KindVectorHash)
			}
			if seg.index > len(vec) {
				return errs.New(errs.PathNotFound, path, "index %d beyond end of %q", seg.index, seg.key)
			}
			if seg.index == len(vec) {
				return nil
			}
			cur = vec[seg.index]
			continue
		}
		if last {
			return nil
		}
		child, ok := n.value.data.(*Hash)
		if !ok {
			return errs.New(errs.TypeMismatch, path, "%q is %s, not %s", seg.key, n.value.kind, KindHash)
		}
		cur = child
	}
	return nil
}

func (h *Hash) childNode(key string, init Value) *Node {
	if n, ok := h.nodes.Get(key); ok {
		return n
	}
	n := &Node{key: key, value: init}
	h.nodes.Set(key, n)
	return n
}

// childForWrite descends one segment, creating what is missing. It assumes
// checkWritable passed.
func (h *Hash) childForWrite(seg segment) *Hash {
	if seg.index < 0 {
		return h.childNode(seg.key, Tree(New())).value.data.(*Hash)
	}
	n := h.childNode(seg.key, Trees(nil))
	vec := n.value.data.([]*Hash)
	if seg.index == len(vec) {
		vec = append(vec, New())
		n.value = Value{kind: KindVectorHash, data: vec}
	}
	return vec[seg.index]
}

// resolve finds the value at segs. The node is nil when the path ends in an
// index, since vector elements carry no attributes.
func (h *Hash) resolve(path string, segs []segment) (Value, *Node, error) {
	cur := h
	for i, seg := range segs {
		n, ok := cur.nodes.Get(seg.key)
		if !ok {
			return Value{}, nil, errs.New(errs.PathNotFound, path, "no key %q", seg.key)
		}
		v := n.value
		if seg.index >= 0 {
			vec, ok := v.data.([]*Hash)
			if !ok || seg.index >= len(vec) {
				return Value{}, nil, errs.New(errs.PathNotFound, path, "no element %d in %q", seg.index, seg.key)
			}
			v, n = Tree(vec[seg.index]), nil
		}
		if i == len(segs)-1 {
			return v, n, nil
		}
		child, ok := v.data.(*Hash)
		if !ok {
			return Value{}, nil, errs.New(errs.PathNotFound, path, "%q is not a hash", seg.key)
		}
		cur = child
	}
	return Value{}, nil, errs.New(errs.PathNotFound, path, "empty path")
}

// Get returns the value at path. A hash value is the live subtree.
func (h *Hash) Get(path string) (Value, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Value{}, err
	}
	v, _, err := h.resolve(path, segs)
	return v, err
}

// Node returns the node at path.
func (h *Hash) Node(path string) (*Node, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	_, n, err := h.resolve(path, segs)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errs.New(errs.PathNotFound, path, "vector element is not a node")
	}
	return n, nil
}

// Has reports whether path resolves.
func (h *Hash) Has(path string) bool {
	_, err := h.Get(path)
	return err == nil
}

// Lookup returns the value at path as T. See Extract.
func Lookup[T any](h *Hash, path string) (T, error) {
	v, err := h.Get(path)
	if err != nil {
		var zero T
		return zero, err
	}
	t, err := Extract[T](v)
	if err != nil {
		return t, located(err, path)
	}
	return t, nil
}

// Erase removes the node at path, or one element of a vector of hashes.
// Emptied parents stay in place.
func (h *Hash) Erase(path string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	parent := h
	if len(segs) > 1 {
		v, _, err := h.resolve(path, segs[:len(segs)-1])
		if err != nil {
			return err
		}
		p, ok := v.data.(*Hash)
		if !ok {
			return errs.New(errs.PathNotFound, path, "parent is not a hash")
		}
		parent = p
	}
	last := segs[len(segs)-1]
	n, ok := parent.nodes.Get(last.key)
	if !ok {
		return errs.New(errs.PathNotFound, path, "no key %q", last.key)
	}
	if last.index < 0 {
		parent.nodes.Delete(last.key)
		return nil
	}
	vec, ok := n.value.data.([]*Hash)
	if !ok || last.index >= len(vec) {
		return errs.New(errs.PathNotFound, path, "no element %d in %q", last.index, last.key)
	}
	out := make([]*Hash, 0, len(vec)-1)
	out = append(out, vec[:last.index]...)
	out = append(out, vec[last.index+1:]...)
	n.value = Value{kind: KindVectorHash, data: out}
	return nil
}

// SetAttribute stores an attribute on the node at path.
func (h *Hash) SetAttribute(path, name string, v Value) error {
	if !v.IsValid() {
		return errs.New(errs.TypeMismatch, path, "invalid value for attribute %q", name)
	}
	n, err := h.Node(path)
	if err != nil {
		return err
	}
	n.attrs.Set(name, v)
	return nil
}

// Attribute returns an attribute of the node at path.
func (h *Hash) Attribute(path, name string) (Value, error) {
	n, err := h.Node(path)
	if err != nil {
		return Value{}, err
	}
	v, ok := n.attrs.Get(name)
	if !ok {
		return Value{}, errs.New(errs.PathNotFound, path, "no attribute %q", name)
	}
	return v, nil
}

// HasAttribute reports whether the node at path carries the attribute.
func (h *Hash) HasAttribute(path, name string) bool {
	n, err := h.Node(path)
	return err == nil && n.attrs.Has(name)
}

// Attributes returns the live attributes of the node at path.
func (h *Hash) Attributes(path string) (*Attributes, error) {
	n, err := h.Node(path)
	if err != nil {
		return nil, err
	}
	return &n.attrs, nil
}

// EraseAttribute removes an attribute from the node at path.
func (h *Hash) EraseAttribute(path, name string) error {
	n, err := h.Node(path)
	if err != nil {
		return err
	}
	if !n.attrs.Delete(name) {
		return errs.New(errs.PathNotFound, path, "no attribute %q", name)
	}
	return nil
}

// Walk calls fn for every node depth-first in insertion order, with the
// node's full path. Nested hashes are entered; vectors of hashes are not.
// A non-nil error from fn stops the walk and is returned.
func (h *Hash) Walk(fn func(path string, n *Node) error) error {
	return h.walk("", fn)
}

func (h *Hash) walk(prefix string, fn func(string, *Node) error) error {
	for key, n := range h.All() {
		path := JoinPath(prefix, key)
		if err := fn(path, n); err != nil {
			return err
		}
		if child, ok := n.Hash(); ok {
			if err := child.walk(path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Paths returns the full paths of all leaves. An empty nested hash counts as
// a leaf.
func (h *Hash) Paths() []string {
	var paths []string
	_ = h.Walk(func(path string, n *Node) error {
		if child, ok := n.Hash(); !ok || child.Empty() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// Subtract erases every leaf path of other from h. Paths missing in h are
// ignored.
func (h *Hash) Subtract(other *Hash) {
	for _, path := range other.Paths() {
		_ = h.Erase(path)
	}
}

// located attaches path to an errs.Error that has none.
func located(err error, path string) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Path == "" {
		return e.WithPath(path)
	}
	return err
}
