// Package analytics builds the admin dashboard from visits and engagement.
package analytics

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"chasopis/internal/cache"
	"chasopis/internal/logger"
	"chasopis/internal/models"
)

const (
	TopCities     = 10
	TopPages      = 15
	TopEngagement = 5

	// BucketFormat keys the hourly timeline.
	BucketFormat = "2006-01-02 15:00"

	unknownCity    = "Unknown"
	unknownCountry = "Unknown country"
)

// articlePath matches article detail URLs and captures the id.
var articlePath = regexp.MustCompile(`^/articles?/(\d+)(?:[/?#]|$)`)

// Store is the read side the aggregator needs.
type Store interface {
	VisitsSince(ctx context.Context, since time.Time) ([]models.VisitRecord, error)
	ArticleTitles(ctx context.Context, ids []int64) (map[int64]string, error)
	CountCommentsSince(ctx context.Context, since time.Time) (int, error)
	TopLikedSince(ctx context.Context, since time.Time, limit int) ([]models.LikedArticle, error)
	TopCommentedSince(ctx context.Context, since time.Time, limit int) ([]models.CommentedArticle, error)
}

type Aggregator struct {
	store    Store
	cache    *cache.Manager
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
	log      logger.Logger
}

type Option func(*Aggregator)

// WithLocation sets the time zone of timeline bucket keys.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.location = loc }
}

// WithCacheTTL sets how long preset dashboards are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.cacheTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(store Store, cacheManager *cache.Manager, log logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    store,
		cache:    cacheManager,
		cacheTTL: time.Minute,
		location: time.UTC,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dashboard aggregates everything recorded at or after since. The
// independent parts are computed concurrently.
func (a *Aggregator) Dashboard(ctx context.Context, since time.Time) (*models.Dashboard, error) {
	start := time.Now()
	d := &models.Dashboard{Since: since.UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		visits, err := a.store.VisitsSince(ctx, since)
		if err != nil {
			return err
		}
		a.summarizeVisits(d, visits)
		return a.resolvePages(ctx, d, visits)
	})
	g.Go(func() error {
		n, err := a.store.CountCommentsSince(ctx, since)
		d.NewComments = n
		return err
	})
	g.Go(func() error {
		liked, err := a.store.TopLikedSince(ctx, since, TopEngagement)
		d.TopLiked = liked
		return err
	})
	g.Go(func() error {
		commented, err := a.store.TopCommentedSince(ctx, since, TopEngagement)
		d.TopCommented = commented
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	if d.TopLiked == nil {
		d.TopLiked = []models.LikedArticle{}
	}
	if d.TopCommented == nil {
		d.TopCommented = []models.CommentedArticle{}
	}

	a.log.Debug("Dashboard built",
		logger.Time("since", since),
		logger.Int("visits", d.Total),
		logger.Duration("took", time.Since(start)))
	return d, nil
}

// summarizeVisits fills the totals, city ranking, map points and timeline.
func (a *Aggregator) summarizeVisits(d *models.Dashboard, visits []models.VisitRecord) {
	sessions := make(map[string]struct{})
	cities := make(map[string]int)
	d.Timeline = make(map[string]int)
	d.Points = []models.MapPoint{}

	for _, v := range visits {
		sessions[v.SessionID] = struct{}{}
		cities[cityLabel(v.Geo)]++
		d.Timeline[v.CreatedAt.In(a.location).Format(BucketFormat)]++
		if v.Geo != nil {
			d.Points = append(d.Points, models.MapPoint{
				Lat:  v.Geo.Latitude,
				Lng:  v.Geo.Longitude,
				City: v.Geo.City,
				Path: v.Path,
			})
		}
	}

	d.Total = len(visits)
	d.UniqueSessions = len(sessions)

	d.ByCity = make([]models.CityCount, 0, len(cities))
	for label, n := range cities {
		d.ByCity = append(d.ByCity, models.CityCount{Label: label, Count: n})
	}
	sort.Slice(d.ByCity, func(i, j int) bool {
		if d.ByCity[i].Count != d.ByCity[j].Count {
			return d.ByCity[i].Count > d.ByCity[j].Count
		}
		return d.ByCity[i].Label < d.ByCity[j].Label
	})
	if len(d.ByCity) > TopCities {
		d.ByCity = d.ByCity[:TopCities]
	}
}

// resolvePages ranks paths and names the ones that are article pages.
func (a *Aggregator) resolvePages(ctx context.Context, d *models.Dashboard, visits []models.VisitRecord) error {
	counts := make(map[string]int)
	for _, v := range visits {
		counts[v.Path]++
	}

	pages := make([]models.PageCount, 0, len(counts))
	for path, n := range counts {
		pages = append(pages, models.PageCount{Path: path, Title: path, Count: n})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Count != pages[j].Count {
			return pages[i].Count > pages[j].Count
		}
		return pages[i].Path < pages[j].Path
	})
	if len(pages) > TopPages {
		pages = pages[:TopPages]
	}

	var ids []int64
	for _, p := range pages {
		if id, ok := ArticleID(p.Path); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		titles, err := a.store.ArticleTitles(ctx, ids)
		if err != nil {
			return err
		}
		for i, p := range pages {
			if id, ok := ArticleID(p.Path); ok {
				if title, found := titles[id]; found {
					pages[i].Title = title
				}
			}
		}
	}

	d.PopularPages = pages
	return nil
}

// ArticleID extracts the article id from a detail page path.
func ArticleID(path string) (int64, bool) {
	m := articlePath.FindStringSubmatch(path)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func cityLabel(geo *models.GeoInfo) string {
	city, country := unknownCity, unknownCountry
	if geo != nil {
		if geo.City != "" {
			city = geo.City
		}
		if geo.Country != "" {
			country = geo.Country
		}
	}
	return city + " / " + country
}
