package hash

import (
	"iter"

	"github.com/mash-protocol/hashcfg/pkg/ordered"
)

// Attributes is an ordered set of named values attached to a node.
// The zero value is empty and ready to use.
type Attributes struct {
	m ordered.Map[Value]
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Has reports whether the attribute exists.
func (a *Attributes) Has(name string) bool {
	return a != nil && a.m.Has(name)
}

// Get returns the attribute value.
func (a *Attributes) Get(name string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	return a.m.Get(name)
}

// Set stores a copy of v under name.
func (a *Attributes) Set(name string, v Value) {
	a.m.Set(name, v.Clone())
}

// Delete removes the attribute and reports whether it existed.
func (a *Attributes) Delete(name string) bool {
	return a != nil && a.m.Delete(name)
}

// Names returns attribute names in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	return a.m.Keys()
}

// All iterates attributes in insertion order.
func (a *Attributes) All() iter.Seq2[string, Value] {
	if a == nil {
		return func(func(string, Value) bool) {}
	}
	return a.m.All()
}

// Clone returns a deep copy.
func (a *Attributes) Clone() *Attributes {
	out := &Attributes{}
	for name, v := range a.All() {
		out.m.Set(name, v.Clone())
	}
	return out
}

// Equal compares names and values without regard to order.
func (a *Attributes) Equal(b *Attributes) bool {
	return equalAttributes(a, b, false)
}

func equalAttributes(a, b *Attributes, ordered bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	if ordered {
		an, bn := a.Names(), b.Names()
		for i := range an {
			if an[i] != bn[i] {
				return false
			}
		}
	}
	for name, av := range a.All() {
		bv, ok := b.Get(name)
		if !ok || !equalValues(av, bv, ordered) {
			return false
		}
	}
	return true
}

// Node is one entry of a hash level: a key, its value and its attributes.
type Node struct {
	key   string
	value Value
	attrs Attributes
}

// Key returns the node's key within its parent.
func (n *Node) Key() string { return n.key }

// Value returns the stored value. Hash payloads are live subtrees.
func (n *Node) Value() Value { return n.value }

// Attributes returns the node's attributes for reading and writing.
func (n *Node) Attributes() *Attributes { return &n.attrs }

// Hash returns the nested hash if the node holds one.
func (n *Node) Hash() (*Hash, bool) {
	h, ok := n.value.data.(*Hash)
	return h, ok
}

func (n *Node) clone() *Node {
	return &Node{key: n.key, value: n.value.Clone(), attrs: *n.attrs.Clone()}
}
