package query

import (
	"strings"

	"chasopis/internal/models"
)

// Matches reports whether the already normalized needle occurs in the
// candidate's title, author name, or any place or subject name.
func Matches(c models.SearchCandidate, needle string) bool {
	if strings.Contains(Normalize(c.Title), needle) {
		return true
	}
	if strings.Contains(NormalizePtr(c.Author), needle) {
		return true
	}
	for _, p := range c.Places {
		if strings.Contains(Normalize(p), needle) {
			return true
		}
	}
	for _, s := range c.Subjects {
		if strings.Contains(Normalize(s), needle) {
			return true
		}
	}
	return false
}

// MatchIDs returns the ids of candidates matching search. The search string is
// normalized here; callers must not pass an empty search.
func MatchIDs(candidates []models.SearchCandidate, search string) []int64 {
	needle := Normalize(search)
	ids := make([]int64, 0)
	for _, c := range candidates {
		if Matches(c, needle) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
