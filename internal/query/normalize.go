// Package query turns listing requests into search queries and implements the
// text normalization used by free-text search.
package query

import "strings"

// folded is the representative every i-like letter collapses to.
const folded = 'i'

// Normalize trims s, lowercases it and folds Latin i, Belarusian і and
// Cyrillic и onto one letter so look-alike spellings compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case 'і', 'и':
			return folded
		}
		return r
	}, s)
}

// NormalizePtr is Normalize for nullable fields; nil normalizes to "".
func NormalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return Normalize(*s)
}
