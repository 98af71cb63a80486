package visits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes recorded in chasopis_geo_lookups_total.
const (
	LookupSuccess      = "success"
	LookupFailure      = "failure"
	LookupSkippedLocal = "skipped_local"
)

// Metrics holds the visit pipeline Prometheus metrics. A nil *Metrics
// records nothing.
type Metrics struct {
	VisitsLogged  prometheus.Counter
	VisitsDropped prometheus.Counter
	GeoCache      *prometheus.CounterVec
	GeoLookups    *prometheus.CounterVec
}

// NewMetrics registers the visit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VisitsLogged: f.NewCounter(prometheus.CounterOpts{
			Name: "chasopis_visits_logged_total",
			Help: "Visits written to the content store",
		}),
		VisitsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "chasopis_visits_dropped_total",
			Help: "Visits dropped because the recorder queue was full or the insert failed",
		}),
		GeoCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chasopis_geo_cache_total",
			Help: "Geo cache lookups by result (hit, miss)",
		}, []string{"result"}),
		GeoLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chasopis_geo_lookups_total",
			Help: "External geolocation lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) logged() {
	if m != nil {
		m.VisitsLogged.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.VisitsDropped.Inc()
	}
}

func (m *Metrics) cache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.GeoCache.WithLabelValues(result).Inc()
}

func (m *Metrics) lookup(result string) {
	if m != nil {
		m.GeoLookups.WithLabelValues(result).Inc()
	}
}
