package jsonbuild

import (
	"fmt"
	"strconv"
)

// rootKey is the sentinel identifier naming the document root. As a path
// component it descends nowhere.
const rootKey = "$"

// componentKind discriminates the two path component variants.
type componentKind uint8

const (
	compKey componentKind = iota
	compIndex
)

// component is one step of a parsed path: a named object key or a numeric
// array index.
type component struct {
	kind  componentKind
	key   string
	index int
}

// Path is an immutable compiled path. Obtain one from ParsePath or
// MustParsePath; the zero value is rejected by AddPath.
type Path struct {
	comps []component
	str   string
}

// ParsePath compiles a path string. The dialect is
// ^\$((\.[A-Za-z0-9]+)*(\[[0-9]+\])*)*$: a leading "$" root marker followed
// by any mix of ".key" segments and "[index]" segments.
func ParsePath(s string) (Path, error) {
	comps, err := scanPath(s)
	if err != nil {
		return Path{}, err
	}
	return Path{comps: comps, str: s}, nil
}

// MustParsePath is ParsePath for compile-time-known paths; it panics on a
// syntax error, like regexp.MustCompile.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source text the path was parsed from.
func (p Path) String() string { return p.str }

// IsZero reports whether p holds no components.
func (p Path) IsZero() bool { return p.comps == nil }

func isAlphaNum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// scanPath is a single-pass scanner over the path grammar. It produces the
// same component sequence as splitting on "." and expanding bracket
// suffixes, with exact error offsets.
func scanPath(s string) ([]component, error) {
	if s == "" || s[0] != '$' {
		return nil, &InvalidPathError{Path: s, Pos: 0, Reason: `path must start with "$"`}
	}
	comps := []component{{kind: compKey, key: rootKey}}
	i := 1
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			start := i
			for i < len(s) && isAlphaNum(s[i]) {
				i++
			}
			if i == start {
				return nil, &InvalidPathError{Path: s, Pos: start, Reason: "expected key after '.'"}
			}
			comps = append(comps, component{kind: compKey, key: s[start:i]})
		case '[':
			i++
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			if i == start {
				return nil, &InvalidPathError{Path: s, Pos: start, Reason: "expected index after '['"}
			}
			if i >= len(s) || s[i] != ']' {
				return nil, &InvalidPathError{Path: s, Pos: i, Reason: "expected ']'"}
			}
			n, err := strconv.Atoi(s[start:i])
			if err != nil {
				return nil, &InvalidPathError{Path: s, Pos: start, Reason: "index out of range"}
			}
			comps = append(comps, component{kind: compIndex, index: n})
			i++
		default:
			return nil, &InvalidPathError{Path: s, Pos: i, Reason: fmt.Sprintf("unexpected character %q", s[i])}
		}
	}
	return comps, nil
}
