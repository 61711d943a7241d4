package inspect

import (
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/schema"
)

// ResolveName resolves a user supplied name to an element path of s. The
// name may be a path, an alias, or a path in different case.
func ResolveName(s *schema.Schema, name string) (string, bool) {
	if s == nil || name == "" {
		return "", false
	}
	if s.Has(name) {
		return name, true
	}
	if path, ok := s.KeyForAlias(name); ok {
		return path, true
	}
	var found string
	s.Walk(func(e *schema.Element) bool {
		if found == "" && strings.EqualFold(e.Path, name) {
			found = e.Path
		}
		return found == ""
	})
	return found, found != ""
}

// ElementName returns the name to display for an element.
func ElementName(e *schema.Element) string {
	if e.DisplayedName != "" {
		return e.DisplayedName
	}
	return e.Key
}

// Complete returns the element paths of s starting with prefix, in schema
// order. It backs shell completion.
func Complete(s *schema.Schema, prefix string) []string {
	if s == nil {
		return nil
	}
	var out []string
	s.Walk(func(e *schema.Element) bool {
		if strings.HasPrefix(e.Path, prefix) {
			out = append(out, e.Path)
		}
		return true
	})
	return out
}
