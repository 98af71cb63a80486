package catalog

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the catalog Prometheus metrics.
type Metrics struct {
	ListDuration *prometheus.HistogramVec
}

// NewMetrics registers the catalog metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ListDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chasopis_article_list_duration_seconds",
			Help:    "Time to build one page of the article listing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"search"}),
	}
}

func (m *Metrics) observeList(search bool, d time.Duration) {
	if m == nil {
		return
	}
	m.ListDuration.WithLabelValues(strconv.FormatBool(search)).Observe(d.Seconds())
}
