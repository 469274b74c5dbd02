package store

import (
	"fmt"
	"strings"
)

// illegalKeyChars may not appear in a path segment.
const illegalKeyChars = ".#$[]"

// splitPath validates p and returns its segments.
func splitPath(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidKey)
	}
	segs := strings.Split(p, "/")
	for _, seg := range segs {
		if err := validKey(seg); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

func validKey(seg string) error {
	if seg == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidKey)
	}
	if strings.ContainsAny(seg, illegalKeyChars) {
		return fmt.Errorf("%w: %q contains one of %q", ErrInvalidKey, seg, illegalKeyChars)
	}
	for _, r := range seg {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidKey, seg)
		}
	}
	return nil
}

// IndexRules declares which child fields may be used with OrderByChild,
// keyed by path pattern. A pattern segment starting with "$" matches any
// single segment.
type IndexRules map[string][]string

// DefaultIndexes covers the per-user review history.
var DefaultIndexes = IndexRules{
	"users/$uid/reviews": {"date"},
}

// Allows reports whether field is indexed for the collection at segs.
func (r IndexRules) Allows(segs []string, field string) bool {
	for pattern, fields := range r {
		if !matchPattern(strings.Split(strings.Trim(pattern, "/"), "/"), segs) {
			continue
		}
		for _, f := range fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

func matchPattern(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, "$") {
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}
