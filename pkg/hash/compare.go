package hash

// Equal reports whether a and b hold the same keys at every level with equal
// values and attributes. Key order is ignored.
func Equal(a, b *Hash) bool { return equalHashes(a, b, false) }

// EqualOrdered is like Equal but also requires the same key order at every
// level, including attribute order.
func EqualOrdered(a, b *Hash) bool { return equalHashes(a, b, true) }

func equalHashes(a, b *Hash, ordered bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	if ordered {
		ak, bk := a.Keys(), b.Keys()
		for i := range ak {
			if ak[i] != bk[i] {
				return false
			}
		}
	}
	for key, an := range a.All() {
		bn, ok := b.nodes.Get(key)
		if !ok {
			return false
		}
		if !equalValues(an.value, bn.value, ordered) || !equalAttributes(&an.attrs, &bn.attrs, ordered) {
			return false
		}
	}
	return true
}

// ChangeOp classifies a difference between two hashes.
type ChangeOp uint8

const (
	Added ChangeOp = iota + 1
	Removed
	Changed
	AttributesChanged
)

func (op ChangeOp) String() string {
	switch op {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	case AttributesChanged:
		return "attributes"
	default:
		return "unknown"
	}
}

// Change is one difference reported by Diff. Old is unset for Added and New
// for Removed.
type Change struct {
	Path string
	Op   ChangeOp
	Old  Value
	New  Value
}

// Diff lists the changes that turn a into b. At each level the keys of a come
// first in their order, followed by keys only present in b. Nested hashes are
// compared key by key; any other value is compared as a whole.
func Diff(a, b *Hash) []Change {
	if a == nil {
		a = New()
	}
	if b == nil {
		b = New()
	}
	var changes []Change
	diff("", a, b, &changes)
	return changes
}

func diff(prefix string, a, b *Hash, out *[]Change) {
	for key, an := range a.All() {
		path := JoinPath(prefix, key)
		bn, ok := b.nodes.Get(key)
		if !ok {
			*out = append(*out, Change{Path: path, Op: Removed, Old: an.value})
			continue
		}
		ah, aIsHash := an.Hash()
		bh, bIsHash := bn.Hash()
		attrsEqual := an.attrs.Equal(&bn.attrs)
		switch {
		case aIsHash && bIsHash:
			if !attrsEqual {
				*out = append(*out, Change{Path: path, Op: AttributesChanged})
			}
			diff(path, ah, bh, out)
		case !an.value.Equal(bn.value):
			*out = append(*out, Change{Path: path, Op: Changed, Old: an.value, New: bn.value})
		case !attrsEqual:
			*out = append(*out, Change{Path: path, Op: AttributesChanged, Old: an.value, New: bn.value})
		}
	}
	for key, bn := range b.All() {
		if !a.nodes.Has(key) {
			*out = append(*out, Change{Path: JoinPath(prefix, key), Op: Added, New: bn.value})
		}
	}
}
