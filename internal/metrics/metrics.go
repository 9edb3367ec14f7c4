package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"storefront/internal/cache"
)

var (
	// ReassignTotal counts single-item reassignments by result (ok, error, missing).
	ReassignTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_reassign_total",
		Help: "Shop reassignments by result",
	}, []string{"result"})

	// ReassignAllDuration tracks full-catalog reassignment runs.
	ReassignAllDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_reassign_all_duration_seconds",
		Help:    "Duration of full catalog reassignment runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	// CategoryComputeDuration tracks category aggregation passes.
	CategoryComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_category_compute_duration_seconds",
		Help:    "Duration of category aggregation passes in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

// StatsFunc reports a cache's counters at scrape time.
type StatsFunc func() cache.Stats

type cacheCollector struct {
	name  string
	stats StatsFunc
	descs map[string]*prometheus.Desc
}

// NewCacheCollector exposes the counters of one named cache.
func NewCacheCollector(name string, stats StatsFunc) prometheus.Collector {
	mk := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("storefront_cache_"+metric+"_total", help, nil, prometheus.Labels{"cache": name})
	}
	return &cacheCollector{
		name:  name,
		stats: stats,
		descs: map[string]*prometheus.Desc{
			"hits":             mk("hits", "Reads served from a fresh snapshot"),
			"stale_serves":     mk("stale_serves", "Reads served from a stale snapshot"),
			"misses":           mk("misses", "Reads that waited for a load"),
			"refreshes":        mk("refreshes", "Loads started"),
			"refresh_failures": mk("refresh_failures", "Loads that failed"),
		},
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	emit := func(key string, v uint64) {
		ch <- prometheus.MustNewConstMetric(c.descs[key], prometheus.CounterValue, float64(v))
	}
	emit("hits", s.Hits)
	emit("stale_serves", s.StaleServes)
	emit("misses", s.Misses)
	emit("refreshes", s.Refreshes)
	emit("refresh_failures", s.RefreshFailures)
}

// RegisterCache registers a cache collector on the default registry. A second
// registration under the same name is ignored.
func RegisterCache(name string, stats StatsFunc) error {
	err := prometheus.Register(NewCacheCollector(name, stats))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
