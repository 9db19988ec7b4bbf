// Package version parses and compares backend engine versions.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-part engine version. Three-part inputs get a zero build number.
type Version struct {
	parts [4]int
}

// Parse accepts "x.x.x" or "x.x.x.x" with numeric parts.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("version string cannot be empty")
	}
	raw := strings.Split(s, ".")
	if len(raw) != 3 && len(raw) != 4 {
		return Version{}, fmt.Errorf("version format should be x.x.x or x.x.x.x, got: %s", s)
	}
	var v Version
	for i, p := range raw {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("version parts must be numeric, got: %s", s)
		}
		v.parts[i] = n
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Extract finds the first version-looking token in s, e.g. "PostgreSQL 16.2 on x86_64".
// Two-part versions are padded to three.
func Extract(s string) (Version, error) {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '+' || r == '(' || r == ')' || r == ','
	}) {
		tok = strings.TrimPrefix(tok, "v")
		switch strings.Count(tok, ".") {
		case 1:
			tok += ".0"
		case 2, 3:
		default:
			continue
		}
		if v, err := Parse(tok); err == nil {
			return v, nil
		}
	}
	return Version{}, fmt.Errorf("no version found in %q", s)
}

// Major returns the major version number.
func (v Version) Major() int { return v.parts[0] }

// Minor returns the minor version number.
func (v Version) Minor() int { return v.parts[1] }

// Patch returns the patch version number.
func (v Version) Patch() int { return v.parts[2] }

// Build returns the build number (0 if not specified).
func (v Version) Build() int { return v.parts[3] }

// Parts returns all four parts.
func (v Version) Parts() [4]int { return v.parts }

// String always renders four parts.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.parts[0], v.parts[1], v.parts[2], v.parts[3])
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	for i := range v.parts {
		switch {
		case v.parts[i] < o.parts[i]:
			return -1
		case v.parts[i] > o.parts[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }
