// Package version provides the descriptor format version and its parsing
// and compatibility rules.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the schema descriptor format implemented by this library.
const Current = "1.0"

// FormatVersion represents a parsed "major.minor" format version.
type FormatVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (FormatVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return FormatVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	mnr, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}
	return FormatVersion{Major: uint16(maj), Minor: uint16(mnr)}, nil
}

// MustParse is like Parse but panics on error. For constants only.
func MustParse(s string) FormatVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if a reader of version v can read other: the
// major versions match and other is not newer.
func (v FormatVersion) Compatible(other FormatVersion) bool {
	return v.Major == other.Major && other.Minor <= v.Minor
}

// Check parses s and verifies that the current format can read it. An
// empty string is accepted as the current version.
func Check(s string) error {
	if s == "" {
		return nil
	}
	other, err := Parse(s)
	if err != nil {
		return err
	}
	if cur := MustParse(Current); !cur.Compatible(other) {
		return fmt.Errorf("unsupported format version %s (this build reads %s)", other, cur)
	}
	return nil
}
