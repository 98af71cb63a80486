package analytics

import (
	"context"
	"fmt"
	"time"

	"chasopis/internal/cache"
	"chasopis/internal/models"
)

// Presets are the dashboard ranges offered to admins.
var Presets = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

const cachePrefix = "dashboard:"

// ParseRange resolves a preset name or a Go duration such as "36h".
func ParseRange(s string) (time.Duration, error) {
	if d, ok := Presets[s]; ok {
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid range %q", s)
	}
	return d, nil
}

// DashboardPreset returns the dashboard for a named preset, cached for the
// configured TTL.
func (a *Aggregator) DashboardPreset(ctx context.Context, name string) (*models.Dashboard, error) {
	d, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown range %q", name)
	}
	return cache.Remember(a.cache, cachePrefix+name, a.cacheTTL, func() (*models.Dashboard, error) {
		return a.Dashboard(ctx, a.now().Add(-d))
	})
}

// Invalidate drops cached preset dashboards.
func (a *Aggregator) Invalidate() {
	a.cache.DeletePrefix(cachePrefix)
}
