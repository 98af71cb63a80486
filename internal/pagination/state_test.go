package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chasopis/internal/models"
)

func page(start, n int) []models.ArticleSummary {
	items := make([]models.ArticleSummary, n)
	for i := range items {
		items[i] = models.ArticleSummary{ID: int64(start + i + 1)}
	}
	return items
}

func TestReduce_ReloadReplaces(t *testing.T) {
	s := State{Articles: page(0, 3)}
	s, _ = Reduce(s, SetSearch{Search: "мінск"})
	s, _ = Reduce(s, SetSort{Sort: "nonsense"})

	s, req := Reduce(s, Reload{})
	require.NotNil(t, req)
	assert.Equal(t, Loading, s.Status)
	assert.Equal(t, Replace, req.Mode)
	assert.Equal(t, 0, req.Query.Skip)
	assert.Equal(t, "мінск", req.Query.Search)
	assert.Equal(t, models.SortNewest, req.Query.SortBy)

	s, _ = Reduce(s, Loaded{Seq: req.Seq, Items: page(100, 2)})
	assert.Equal(t, Idle, s.Status)
	assert.Equal(t, []int64{101, 102}, ids(s.Articles))
	assert.False(t, s.HasMore)
}

func TestReduce_LoadMoreAppends(t *testing.T) {
	s, req := Reduce(State{}, Reload{})
	s, _ = Reduce(s, Loaded{Seq: req.Seq, Items: page(0, models.PageSize)})
	require.True(t, s.HasMore)

	s, req = Reduce(s, LoadMore{})
	require.NotNil(t, req)
	assert.Equal(t, Append, req.Mode)
	assert.Equal(t, models.PageSize, req.Query.Skip)

	s, _ = Reduce(s, Loaded{Seq: req.Seq, Items: page(models.PageSize, 4)})
	assert.Len(t, s.Articles, models.PageSize+4)
	assert.False(t, s.HasMore)
}

func TestReduce_LoadMoreGuards(t *testing.T) {
	s, req := Reduce(State{}, LoadMore{})
	assert.Nil(t, req, "nothing to load before the first page")

	s, first := Reduce(s, Reload{})
	_, req = Reduce(s, LoadMore{})
	assert.Nil(t, req, "load more ignored while loading")

	s, _ = Reduce(s, Loaded{Seq: first.Seq, Items: page(0, 5)})
	_, req = Reduce(s, LoadMore{})
	assert.Nil(t, req, "load more ignored after a short page")
}

func TestReduce_StaleResponsesIgnored(t *testing.T) {
	s, first := Reduce(State{}, Reload{})
	s, _ = Reduce(s, SetSearch{Search: "новае"})
	s, second := Reduce(s, Reload{})
	require.Greater(t, second.Seq, first.Seq)

	s, _ = Reduce(s, Loaded{Seq: first.Seq, Items: page(0, models.PageSize)})
	assert.Equal(t, Loading, s.Status)
	assert.Empty(t, s.Articles)

	s, _ = Reduce(s, Failed{Seq: first.Seq, Err: errors.New("late")})
	assert.Equal(t, Loading, s.Status)
	assert.NoError(t, s.Err)

	s, _ = Reduce(s, Loaded{Seq: second.Seq, Items: page(50, 1)})
	assert.Equal(t, Idle, s.Status)
	assert.Equal(t, []int64{51}, ids(s.Articles))

	s, _ = Reduce(s, Loaded{Seq: second.Seq, Items: page(0, 3)})
	assert.Equal(t, []int64{51}, ids(s.Articles), "duplicate delivery ignored")
}

func TestReduce_FailureReturnsToIdle(t *testing.T) {
	s, req := Reduce(State{}, Reload{})
	s, _ = Reduce(s, Loaded{Seq: req.Seq, Items: page(0, models.PageSize)})

	s, req = Reduce(s, LoadMore{})
	boom := errors.New("boom")
	s, _ = Reduce(s, Failed{Seq: req.Seq, Err: boom})
	assert.Equal(t, Idle, s.Status)
	assert.ErrorIs(t, s.Err, boom)
	assert.Len(t, s.Articles, models.PageSize)

	s, req = Reduce(s, LoadMore{})
	require.NotNil(t, req, "a failed load must not block later loads")
	assert.NoError(t, s.Err)
}

func TestReduce_DoesNotAliasInput(t *testing.T) {
	s, req := Reduce(State{}, Reload{})
	items := page(0, models.PageSize)
	s, _ = Reduce(s, Loaded{Seq: req.Seq, Items: items})

	before := s
	loading, req := Reduce(s, LoadMore{})
	after, _ := Reduce(loading, Loaded{Seq: req.Seq, Items: page(100, 1)})

	assert.Len(t, before.Articles, models.PageSize)
	assert.Len(t, after.Articles, models.PageSize+1)
	items[0].ID = 999
	assert.Equal(t, int64(1), after.Articles[0].ID)
}

func ids(items []models.ArticleSummary) []int64 {
	out := make([]int64, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}
