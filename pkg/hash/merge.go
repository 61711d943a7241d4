package hash

import "strings"

// MergePolicy decides which side wins when both hashes hold a key.
type MergePolicy uint8

const (
	// MergeReplace lets values and attributes from the other hash win.
	MergeReplace MergePolicy = iota
	// MergeKeepExisting keeps what the receiver already has and only adds
	// missing keys and attributes.
	MergeKeepExisting
)

func (p MergePolicy) String() string {
	switch p {
	case MergeReplace:
		return "replace"
	case MergeKeepExisting:
		return "keep-existing"
	default:
		return "unknown"
	}
}

// Merge deep-merges other into h. Keys missing in h are appended in other's
// order. When both sides hold a hash the two are merged recursively;
// otherwise the policy picks the value. Attributes of common nodes are merged
// with the same policy. other is not modified.
//
// With paths given, only the subtrees of other at those paths take part.
// Hashes on the way to a selected path are merged without their attributes.
// Selected paths that other lacks are ignored.
func (h *Hash) Merge(other *Hash, policy MergePolicy, paths ...string) {
	if len(paths) > 0 {
		other = selectPaths(other, "", paths)
	}
	h.merge(other, policy)
}

func (h *Hash) merge(other *Hash, policy MergePolicy) {
	for key, on := range other.All() {
		n, ok := h.nodes.Get(key)
		if !ok {
			h.nodes.Set(key, on.clone())
			continue
		}
		mine, mineIsHash := n.Hash()
		theirs, theirsIsHash := on.Hash()
		switch {
		case mineIsHash && theirsIsHash:
			mine.merge(theirs, policy)
		case policy == MergeReplace:
			n.value = on.value.Clone()
		}
		n.attrs.merge(&on.attrs, policy)
	}
}

func (a *Attributes) merge(other *Attributes, policy MergePolicy) {
	for name, v := range other.All() {
		if policy == MergeKeepExisting && a.Has(name) {
			continue
		}
		a.Set(name, v)
	}
}

// selectPaths returns a copy of the parts of h at or below one of paths.
func selectPaths(h *Hash, prefix string, paths []string) *Hash {
	out := New()
	for key, n := range h.All() {
		path := JoinPath(prefix, key)
		switch {
		case coveredBy(path, paths):
			out.nodes.Set(key, n.clone())
		case leadsTo(path, paths):
			child, ok := n.Hash()
			if !ok {
				continue
			}
			if sub := selectPaths(child, path, paths); !sub.Empty() {
				out.nodes.Set(key, &Node{key: key, value: Tree(sub)})
			}
		}
	}
	return out
}

// coveredBy reports whether path is one of paths or lies below one.
func coveredBy(path string, paths []string) bool {
	for _, p := range paths {
		if path == p || strings.HasPrefix(path, p+Separator) {
			return true
		}
	}
	return false
}

// leadsTo reports whether some entry of paths lies below path.
func leadsTo(path string, paths []string) bool {
	for _, p := range paths {
		if strings.HasPrefix(p, path+Separator) {
			return true
		}
	}
	return false
}
