package hash

import (
	"strconv"
	"strings"

	"github.com/mash-protocol/hashcfg/pkg/errs"
)

// Separator divides path segments.
const Separator = "."

// segment is one path element. index is -1 unless the segment addresses an
// element of a vector of hashes, as in "rows[2]".
type segment struct {
	key   string
	index int
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, errs.New(errs.PathNotFound, path, "empty path")
	}
	parts := strings.Split(path, Separator)
	segs := make([]segment, len(parts))
	for i, part := range parts {
		seg, ok := parseSegment(part)
		if !ok {
			return nil, errs.New(errs.PathNotFound, path, "invalid segment %q", part)
		}
		segs[i] = seg
	}
	return segs, nil
}

func parseSegment(s string) (segment, bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return segment{key: s, index: -1}, ValidKey(s)
	}
	if !ValidKey(s[:open]) || !strings.HasSuffix(s, "]") {
		return segment{}, false
	}
	digits := s[open+1 : len(s)-1]
	if digits == "" || strings.ContainsAny(digits, "+-") {
		return segment{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return segment{}, false
	}
	return segment{key: s[:open], index: n}, true
}

// JoinPath joins segments with the separator, skipping empty ones.
func JoinPath(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, Separator)
}

// IndexPath returns the path of element i of the vector of hashes at path.
func IndexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// ValidKey reports whether s can be used as a single key: non-empty, without
// separator or index brackets.
func ValidKey(s string) bool {
	return s != "" && !strings.ContainsAny(s, Separator+"[]")
}
