package pagination

import (
	"context"
	"sync"
	"time"

	"chasopis/internal/logger"
	"chasopis/internal/models"
)

// DefaultDebounce is the quiet period after the last query edit before the
// listing reloads.
const DefaultDebounce = 500 * time.Millisecond

// Fetcher loads one page for q.
type Fetcher func(ctx context.Context, q models.SearchQuery) ([]models.ArticleSummary, error)

type Controller struct {
	base     context.Context
	fetch    Fetcher
	debounce time.Duration
	log      logger.Logger

	mu      sync.Mutex
	state   State
	timer   *time.Timer
	gen     uint64
	pending bool
	cancel  context.CancelFunc
	changed chan struct{}
}

type ControllerOption func(*Controller)

func WithDebounce(d time.Duration) ControllerOption {
	return func(c *Controller) { c.debounce = d }
}

func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController creates an idle controller. Requests run under ctx.
func NewController(ctx context.Context, fetch Fetcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		base:     ctx,
		fetch:    fetch,
		debounce: DefaultDebounce,
		log:      logger.NewNop(),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSearch updates the search text and schedules a reload.
func (c *Controller) SetSearch(search string) {
	c.edit(SetSearch{Search: search})
}

// SetSort updates the sort order and schedules a reload.
func (c *Controller) SetSort(sort models.SortBy) {
	c.edit(SetSort{Sort: sort})
}

// SetFilters updates the facet selection and schedules a reload.
func (c *Controller) SetFilters(filters models.FilterState) {
	c.edit(SetFilters{Filters: filters})
}

// Reload fetches the first page now, cancelling any pending or running load.
func (c *Controller) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.dispatchLocked(Reload{})
}

// LoadMore fetches the next page unless a load is running or the results are
// exhausted.
func (c *Controller) LoadMore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(LoadMore{})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Articles = append([]models.ArticleSummary(nil), c.state.Articles...)
	return s
}

// Wait blocks until no reload is scheduled and no request is running.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.pending && c.state.Status == Idle {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the debounce timer and cancels the running request.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.notifyLocked()
}

func (c *Controller) edit(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dispatchLocked(a)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending = true
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
	c.notifyLocked()
}

// fire runs a debounced reload unless timer gen was superseded or stopped.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil || c.gen != gen {
		return
	}
	c.stopTimerLocked()
	c.dispatchLocked(Reload{})
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = false
}

func (c *Controller) dispatchLocked(a Action) {
	var req *Request
	c.state, req = Reduce(c.state, a)
	c.notifyLocked()
	if req == nil {
		return
	}

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel

	c.log.Debug("Loading articles",
		logger.Int64("seq", int64(req.Seq)),
		logger.Int("skip", req.Query.Skip),
		logger.Bool("append", req.Mode == Append))

	go c.run(ctx, cancel, *req)
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, req Request) {
	defer cancel()
	items, err := c.fetch(ctx, req.Query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if req.Seq == c.state.Seq {
			c.log.Warn("Loading articles failed", logger.Error(err))
		}
		c.state, _ = Reduce(c.state, Failed{Seq: req.Seq, Err: err})
	} else {
		c.state, _ = Reduce(c.state, Loaded{Seq: req.Seq, Items: items})
	}
	c.notifyLocked()
}

// notifyLocked wakes every Wait call.
func (c *Controller) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
