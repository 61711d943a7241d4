package hash

import (
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/errs"
)

// Flatten returns a one-level hash holding every leaf of h under its full
// path, with segments joined by sep. Leaves keep their attributes; nested
// hashes are dissolved and their attributes dropped. An empty nested hash is
// kept as a leaf. Vectors of hashes are leaves.
//
// sep must be a valid key, so "." cannot be used. Flatten fails with
// TypeMismatch if a key of h already contains sep.
func (h *Hash) Flatten(sep string) (*Hash, error) {
	if !ValidKey(sep) {
		return nil, errs.New(errs.TypeMismatch, "", "invalid flatten separator %q", sep)
	}
	flat := New()
	err := h.flatten(flat, "", sep)
	if err != nil {
		return nil, err
	}
	return flat, nil
}

func (h *Hash) flatten(flat *Hash, prefix, sep string) error {
	for key, n := range h.All() {
		if strings.Contains(key, sep) {
			return errs.New(errs.TypeMismatch, key, "key contains separator %q", sep)
		}
		path := key
		if prefix != "" {
			path = prefix + sep + key
		}
		if child, ok := n.Hash(); ok && !child.Empty() {
			if err := child.flatten(flat, path, sep); err != nil {
				return err
			}
			continue
		}
		c := n.clone()
		c.key = path
		flat.nodes.Set(path, c)
	}
	return nil
}

// Unflatten rebuilds a tree from a one-level hash whose keys join segments
// with sep, as produced by Flatten. Attributes of the flat entries move to
// the rebuilt leaves. A key that runs through an existing leaf fails with
// TypeMismatch.
func (h *Hash) Unflatten(sep string) (*Hash, error) {
	if !ValidKey(sep) {
		return nil, errs.New(errs.TypeMismatch, "", "invalid flatten separator %q", sep)
	}
	tree := New()
	for key, n := range h.All() {
		path := JoinPath(strings.Split(key, sep)...)
		if strings.Count(path, Separator) != strings.Count(key, sep) {
			return nil, errs.New(errs.TypeMismatch, key, "empty segment")
		}
		if err := tree.Set(path, n.value); err != nil {
			return nil, err
		}
		leaf, err := tree.Node(path)
		if err != nil {
			return nil, err
		}
		leaf.attrs = *n.attrs.Clone()
	}
	return tree, nil
}
