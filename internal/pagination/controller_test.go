package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chasopis/internal/models"
)

// fakeListing serves pages out of a fixed number of articles.
type fakeListing struct {
	mu      sync.Mutex
	total   int
	queries []models.SearchQuery
	gate    chan struct{}
	err     error
}

func (f *fakeListing) fetch(ctx context.Context, q models.SearchQuery) ([]models.ArticleSummary, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	n := f.total - q.Skip
	if n < 0 {
		n = 0
	}
	if n > models.PageSize {
		n = models.PageSize
	}
	return page(q.Skip, n), nil
}

func (f *fakeListing) calls() []models.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SearchQuery(nil), f.queries...)
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func TestController_Exhaustion(t *testing.T) {
	listing := &fakeListing{total: 32}
	c := NewController(context.Background(), listing.fetch)
	defer c.Close()

	c.Reload()
	waitIdle(t, c)
	s := c.Snapshot()
	assert.Len(t, s.Articles, 16)
	assert.True(t, s.HasMore)

	c.LoadMore()
	waitIdle(t, c)
	s = c.Snapshot()
	assert.Len(t, s.Articles, 32)
	assert.True(t, s.HasMore, "a full page cannot tell it was the last one")

	c.LoadMore()
	waitIdle(t, c)
	s = c.Snapshot()
	assert.Len(t, s.Articles, 32)
	assert.False(t, s.HasMore)

	c.LoadMore()
	waitIdle(t, c)

	calls := listing.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []int{0, 16, 32}, []int{calls[0].Skip, calls[1].Skip, calls[2].Skip})
}

func TestController_DebouncesEdits(t *testing.T) {
	listing := &fakeListing{total: 3}
	c := NewController(context.Background(), listing.fetch, WithDebounce(100*time.Millisecond))
	defer c.Close()

	for _, s := range []string{"м", "мі", "мін", "мінс", "мінск"} {
		c.SetSearch(s)
		time.Sleep(5 * time.Millisecond)
	}
	c.SetSort(models.SortLikes)
	assert.Empty(t, listing.calls(), "no request before the quiet period")

	waitIdle(t, c)
	calls := listing.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "мінск", calls[0].Search)
	assert.Equal(t, models.SortLikes, calls[0].SortBy)
	assert.Len(t, c.Snapshot().Articles, 3)
}

func TestController_ZeroDebounceStillReloads(t *testing.T) {
	for i := 0; i < 200; i++ {
		listing := &fakeListing{total: 1}
		c := NewController(context.Background(), listing.fetch, WithDebounce(0))

		c.SetSearch("гродна")
		waitIdle(t, c)
		c.Close()

		calls := listing.calls()
		require.Len(t, calls, 1, "iteration %d", i)
		assert.Equal(t, "гродна", calls[0].Search)
	}
}

func TestController_LoadMoreWhileLoadingIgnored(t *testing.T) {
	listing := &fakeListing{total: 40}
	c := NewController(context.Background(), listing.fetch)
	defer c.Close()

	c.Reload()
	waitIdle(t, c)

	gate := make(chan struct{})
	listing.mu.Lock()
	listing.gate = gate
	listing.mu.Unlock()

	c.LoadMore()
	c.LoadMore()
	c.LoadMore()
	assert.Equal(t, Loading, c.Snapshot().Status)

	close(gate)
	waitIdle(t, c)
	assert.Len(t, listing.calls(), 2)
	assert.Len(t, c.Snapshot().Articles, 32)
}

func TestController_ReloadCancelsSuperseded(t *testing.T) {
	listing := &fakeListing{total: 5, gate: make(chan struct{})}
	c := NewController(context.Background(), listing.fetch)
	defer c.Close()

	c.Reload()
	c.SetSearch("новае")
	c.Reload()

	require.Eventually(t, func() bool { return len(listing.calls()) == 2 }, time.Second, 5*time.Millisecond)

	// Only the latest request may complete; the first one was cancelled.
	close(listing.gate)
	waitIdle(t, c)

	s := c.Snapshot()
	assert.NoError(t, s.Err)
	assert.Len(t, s.Articles, 5)
	assert.Equal(t, uint64(2), s.Seq)
}

func TestController_FailureKeepsResults(t *testing.T) {
	listing := &fakeListing{total: 20}
	c := NewController(context.Background(), listing.fetch)
	defer c.Close()

	c.Reload()
	waitIdle(t, c)

	boom := errors.New("store down")
	listing.mu.Lock()
	listing.err = boom
	listing.mu.Unlock()

	c.LoadMore()
	waitIdle(t, c)
	s := c.Snapshot()
	assert.ErrorIs(t, s.Err, boom)
	assert.Len(t, s.Articles, 16)

	listing.mu.Lock()
	listing.err = nil
	listing.mu.Unlock()

	c.LoadMore()
	waitIdle(t, c)
	s = c.Snapshot()
	assert.NoError(t, s.Err)
	assert.Len(t, s.Articles, 20)
}

func TestController_WaitHonoursContext(t *testing.T) {
	listing := &fakeListing{total: 1, gate: make(chan struct{})}
	c := NewController(context.Background(), listing.fetch)
	defer c.Close()

	c.Reload()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}
