// Package importer pulls articles from RSS and Atom feeds into sections.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"chasopis/internal/logger"
	"chasopis/internal/models"
)

const (
	// DefaultFeedTimeout bounds the fetch of a single feed.
	DefaultFeedTimeout = 30 * time.Second

	maxParallelFeeds = 4
)

var ErrUnknownSection = errors.New("no feeds configured for section")

// Saver persists one imported article.
type Saver interface {
	Save(ctx context.Context, in models.ArticleInput) (int64, bool, error)
}

// Result summarizes one section import.
type Result struct {
	Section string `json:"section"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Errors  int    `json:"feed_errors"`
}

type Importer struct {
	saver    Saver
	feeds    map[string][]string
	parser   *gofeed.Parser
	interval time.Duration
	timeout  time.Duration
	metrics  *Metrics
	log      logger.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	lastRun map[string]time.Time
	running bool
}

type Option func(*Importer)

// WithHTTPClient sets the client used to download feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) { i.parser.Client = c }
}

func WithFeedTimeout(d time.Duration) Option {
	return func(i *Importer) { i.timeout = d }
}

func WithMetrics(m *Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

func New(saver Saver, feeds map[string][]string, interval time.Duration, log logger.Logger, opts ...Option) *Importer {
	parser := gofeed.NewParser()
	parser.UserAgent = "chasopis-importer/1.0"

	i := &Importer{
		saver:    saver,
		feeds:    feeds,
		parser:   parser,
		interval: interval,
		timeout:  DefaultFeedTimeout,
		log:      log,
		lastRun:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Sections lists the configured sections in name order.
func (i *Importer) Sections() []string {
	sections := make([]string, 0, len(i.feeds))
	for s := range i.feeds {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	return sections
}

// Start runs an import immediately and then on every interval until Stop.
func (i *Importer) Start() {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel
	i.running = true
	i.mu.Unlock()

	i.log.Info("Starting feed importer",
		logger.Duration("interval", i.interval),
		logger.Int("sections", len(i.feeds)))

	i.wg.Add(1)
	go i.loop(ctx)
}

func (i *Importer) Stop() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	cancel := i.cancel
	i.mu.Unlock()

	cancel()
	i.wg.Wait()
	i.log.Info("Feed importer stopped")
}

func (i *Importer) IsRunning() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}

// LastRun returns when each section was last imported.
func (i *Importer) LastRun() map[string]time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make(map[string]time.Time, len(i.lastRun))
	for s, t := range i.lastRun {
		out[s] = t
	}
	return out
}

func (i *Importer) loop(ctx context.Context) {
	defer i.wg.Done()

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	i.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			i.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (i *Importer) runOnce(ctx context.Context) {
	if _, err := i.ImportAll(ctx); err != nil && ctx.Err() == nil {
		i.log.Error("Feed import failed", logger.Error(err))
	}
}

// ImportAll imports every configured section concurrently.
func (i *Importer) ImportAll(ctx context.Context) ([]Result, error) {
	sections := i.Sections()
	results := make([]Result, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	for n, section := range sections {
		n, section := n, section
		g.Go(func() error {
			r, err := i.ImportSection(gctx, section)
			results[n] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	i.log.Info("Feed import completed", logger.Int("sections", len(sections)))
	return results, nil
}

// ImportSection fetches the feeds of one section and saves their items.
// Feeds that fail are logged and counted; the section still completes.
func (i *Importer) ImportSection(ctx context.Context, section string) (Result, error) {
	urls, ok := i.feeds[section]
	if !ok {
		return Result{Section: section}, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	res := Result{Section: section}
	items := i.fetchAll(ctx, section, urls, &res)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in, ok := toArticle(section, item)
		if !ok {
			res.Failed++
			i.metrics.item(section, outcomeFailed)
			continue
		}
		_, created, err := i.saver.Save(ctx, in)
		switch {
		case err != nil:
			res.Failed++
			i.metrics.item(section, outcomeFailed)
			i.log.Warn("Failed to save imported article",
				logger.String("section", section),
				logger.String("url", in.SourceURL),
				logger.Error(err))
		case created:
			res.Created++
			i.metrics.item(section, outcomeCreated)
		default:
			res.Updated++
			i.metrics.item(section, outcomeUpdated)
		}
	}

	i.mu.Lock()
	i.lastRun[section] = time.Now()
	i.mu.Unlock()

	i.log.Info("Section imported",
		logger.String("section", section),
		logger.Int("fetched", res.Fetched),
		logger.Int("created", res.Created),
		logger.Int("updated", res.Updated),
		logger.Int("failed", res.Failed))
	return res, nil
}

// fetchAll downloads the feeds of a section in parallel and returns their
// items in feed order.
func (i *Importer) fetchAll(ctx context.Context, section string, urls []string, res *Result) []*gofeed.Item {
	feeds := make([]*gofeed.Feed, len(urls))

	var g errgroup.Group
	g.SetLimit(maxParallelFeeds)
	for n, url := range urls {
		n, url := n, url
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, i.timeout)
			defer cancel()

			feed, err := i.parser.ParseURLWithContext(url, fctx)
			if err != nil {
				i.log.Warn("Failed to fetch feed",
					logger.String("section", section),
					logger.String("url", url),
					logger.Error(err))
				return nil
			}
			feeds[n] = feed
			return nil
		})
	}
	_ = g.Wait()

	var items []*gofeed.Item
	for _, feed := range feeds {
		if feed == nil {
			res.Errors++
			i.metrics.feedError(section)
			continue
		}
		items = append(items, feed.Items...)
	}
	res.Fetched = len(items)
	return items
}

// toArticle maps a feed item onto the article write model.
func toArticle(section string, item *gofeed.Item) (models.ArticleInput, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return models.ArticleInput{}, false
	}

	in := models.ArticleInput{
		Title:     title,
		Content:   item.Content,
		SourceURL: strings.TrimSpace(item.Link),
		Section:   section,
		Tags:      item.Categories,
	}
	if in.Content == "" {
		in.Content = item.Description
	}

	switch {
	case item.Author != nil && item.Author.Name != "":
		in.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		in.Author = item.Authors[0].Name
	}

	if item.Image != nil {
		in.CoverURL = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				in.CoverURL = enc.URL
				break
			}
		}
	}

	switch {
	case item.PublishedParsed != nil:
		in.CreatedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		in.CreatedAt = *item.UpdatedParsed
	}
	return in, true
}
