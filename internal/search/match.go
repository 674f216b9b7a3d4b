// Package search implements the free-text matching applied to joined rows
// that cannot be filtered in SQL (for example distributions matched on their
// contact's name, email or phone after the contact join).
//
// Matching is a substring test after folding both sides: case is folded
// and combining marks are stripped, so "jose" matches "José".
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Fold normalizes s for comparison.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return folder.String(strings.TrimSpace(out))
}

// Matcher tests records against a query. The zero Matcher matches
// everything.
type Matcher struct {
	q string
}

// NewMatcher prepares query for repeated matching.
func NewMatcher(query string) Matcher {
	return Matcher{q: Fold(query)}
}

// Empty reports whether the query is blank.
func (m Matcher) Empty() bool { return m.q == "" }

// Match reports whether any field contains the query.
func (m Matcher) Match(fields ...string) bool {
	if m.q == "" {
		return true
	}
	for _, f := range fields {
		if f != "" && strings.Contains(Fold(f), m.q) {
			return true
		}
	}
	return false
}

// Filter returns the items for which fields(item) matches, preserving
// order. The input slice is not modified.
func Filter[T any](m Matcher, items []T, fields func(T) []string) []T {
	if m.Empty() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if m.Match(fields(it)...) {
			out = append(out, it)
		}
	}
	return out
}
