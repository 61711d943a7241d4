// Package inspect provides tree inspection and editing utilities for the
// command line.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "link.tcp.port", "points[1].label@unit")
//   - Resolving element names and aliases through a schema
//   - Reading, writing and removing values and attributes
//   - Formatting trees and schema help for display
package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// Path represents a parsed inspection path.
// Format: key[.key|[index]]...[@attribute]
type Path struct {
	// Tree is the dotted path of the node in the tree.
	Tree string

	// Attribute names an attribute of the node (empty for the value).
	Attribute string

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "a.b.c" - node value
//   - "a/b/c" - same, with slashes as separators
//   - "rows[2].label" - node inside a vector of hashes
//   - "a.b@unit" - attribute of a node
//   - "." - the root (for listing)
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}
	p := &Path{Raw: input}
	if input == "." || input == "/" {
		return p, nil
	}

	tree := input
	if at := strings.LastIndexByte(input, '@'); at >= 0 {
		tree, p.Attribute = input[:at], input[at+1:]
		if !hash.ValidKey(p.Attribute) {
			return nil, fmt.Errorf("%w: attribute %q", ErrInvalidPath, p.Attribute)
		}
	}
	tree = strings.ReplaceAll(tree, "/", ".")

	// Check for invalid patterns
	if tree == "" || strings.HasPrefix(tree, ".") || strings.HasSuffix(tree, ".") || strings.Contains(tree, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}
	for _, seg := range strings.Split(tree, ".") {
		key, _, _ := strings.Cut(seg, "[")
		if !hash.ValidKey(key) {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
	}
	p.Tree = tree
	return p, nil
}

// IsRoot reports whether the path addresses the whole tree.
func (p *Path) IsRoot() bool { return p.Tree == "" }

// String returns the path in canonical form.
func (p *Path) String() string {
	s := p.Tree
	if s == "" {
		s = "."
	}
	if p.Attribute != "" {
		s += "@" + p.Attribute
	}
	return s
}

// SchemaPath strips vector indices so the path can be looked up in a
// schema. Paths into table rows have no schema element and report false.
func (p *Path) SchemaPath() (string, bool) {
	if strings.ContainsRune(p.Tree, '[') {
		return "", false
	}
	return p.Tree, true
}
