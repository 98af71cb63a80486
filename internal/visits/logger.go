// Package visits records page views enriched with an approximate location.
package visits

import (
	"context"
	"time"

	"chasopis/internal/geoip"
	"chasopis/internal/logger"
	"chasopis/internal/models"
)

// DefaultWindow is how long a resolved location is reused for the same IP.
const DefaultWindow = 24 * time.Hour

// Store appends visit records.
type Store interface {
	InsertVisit(ctx context.Context, v *models.VisitRecord) error
}

// Locator resolves an IP address. Implementations return either a complete
// location or an error.
type Locator interface {
	Lookup(ctx context.Context, ip string) (*models.GeoInfo, error)
}

// Logger writes one visit record per call. Failures are logged and never
// returned, so callers can fire and forget.
type Logger struct {
	store   Store
	cache   GeoCache
	locator Locator
	window  time.Duration
	now     func() time.Time
	metrics *Metrics
	log     logger.Logger
}

type Option func(*Logger)

// WithWindow sets the freshness window for cached locations.
func WithWindow(d time.Duration) Option {
	return func(l *Logger) { l.window = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func WithMetrics(m *Metrics) Option {
	return func(l *Logger) { l.metrics = m }
}

func NewLogger(store Store, cache GeoCache, locator Locator, log logger.Logger, opts ...Option) *Logger {
	l := &Logger{
		store:   store,
		cache:   cache,
		locator: locator,
		window:  DefaultWindow,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records the visit. A location seen for the same IP within the window
// is copied; otherwise a routable IP is looked up and a local or malformed
// one is stored without location. The record is inserted in every case.
func (l *Logger) Log(ctx context.Context, in models.VisitInput) {
	now := l.now().UTC()

	geo := l.resolve(ctx, in.IP, now)

	rec := &models.VisitRecord{
		IP:        in.IP,
		SessionID: in.SessionID,
		Path:      in.Path,
		Geo:       geo,
		CreatedAt: now,
	}
	if err := l.store.InsertVisit(ctx, rec); err != nil {
		l.metrics.dropped()
		l.log.Error("Failed to record visit",
			logger.String("path", in.Path),
			logger.Error(err))
		return
	}
	l.metrics.logged()

	// The stored visit is now the newest geolocated one for this IP, so the
	// cache entry moves forward on hits as well as on fresh lookups.
	if geo != nil {
		if err := l.cache.Remember(ctx, in.IP, *geo, now); err != nil {
			l.log.Warn("Failed to cache location", logger.Error(err))
		}
	}
}

// resolve returns the visit location from the cache or a fresh lookup.
func (l *Logger) resolve(ctx context.Context, ip string, now time.Time) *models.GeoInfo {
	cached, err := l.cache.Lookup(ctx, ip, now.Add(-l.window))
	if err != nil {
		l.log.Warn("Geo cache lookup failed", logger.Error(err))
	}
	if cached != nil {
		l.metrics.cache(true)
		return cached
	}
	l.metrics.cache(false)

	if !geoip.Routable(ip) {
		l.metrics.lookup(LookupSkippedLocal)
		return nil
	}

	geo, err := l.locator.Lookup(ctx, ip)
	if err != nil || geo == nil {
		l.metrics.lookup(LookupFailure)
		l.log.Debug("Geo lookup failed", logger.Error(err))
		return nil
	}
	l.metrics.lookup(LookupSuccess)
	return geo
}
