package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chasopis/internal/models"
)

func strPtr(s string) *string { return &s }

func TestMatches(t *testing.T) {
	c := models.SearchCandidate{
		ID:       1,
		Title:    "Гісторыя Полацка",
		Author:   strPtr("Іван Мележ"),
		Places:   []string{"Полацк", "Віцебск"},
		Subjects: []string{"Сярэднявечча"},
	}

	tests := []struct {
		name   string
		needle string
		want   bool
	}{
		{"title", "гiсторыя", true},
		{"title with cyrillic i", Normalize("ГИСТОРЫЯ"), true},
		{"author", Normalize("иван"), true},
		{"place", Normalize("вiцебск"), true},
		{"subject", Normalize("сярэдня"), true},
		{"miss", Normalize("Мінск"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(c, tt.needle))
		})
	}
}

func TestMatches_NilAuthor(t *testing.T) {
	c := models.SearchCandidate{ID: 2, Title: "Без аўтара"}
	assert.False(t, Matches(c, "iван"))
	assert.True(t, Matches(c, "аўтара"))
}

func TestMatchIDs(t *testing.T) {
	candidates := []models.SearchCandidate{
		{ID: 1, Title: "Мінск учора"},
		{ID: 2, Title: "Гродна", Places: []string{"Мінская вобласць"}},
		{ID: 3, Title: "Брэст"},
	}

	assert.Equal(t, []int64{1, 2}, MatchIDs(candidates, "  МИНСК "))
	got := MatchIDs(candidates, "Магілёў")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
