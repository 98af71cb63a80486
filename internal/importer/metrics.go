package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeFailed  = "failed"
)

type Metrics struct {
	Items      *prometheus.CounterVec
	FeedErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Items: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chasopis_import_items_total",
			Help: "Feed items imported, by section and outcome.",
		}, []string{"section", "outcome"}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chasopis_import_feed_errors_total",
			Help: "Feeds that could not be fetched or parsed, by section.",
		}, []string{"section"}),
	}
}

func (m *Metrics) item(section, outcome string) {
	if m == nil {
		return
	}
	m.Items.WithLabelValues(section, outcome).Inc()
}

func (m *Metrics) feedError(section string) {
	if m == nil {
		return
	}
	m.FeedErrors.WithLabelValues(section).Inc()
}
