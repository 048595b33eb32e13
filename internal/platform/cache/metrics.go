package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes cache behaviour per bucket.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewMetrics registers cache collectors. A nil registerer disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_list_cache_hits_total",
			Help: "Cache hits served per bucket, including stale entries.",
		}, []string{"bucket"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_list_cache_misses_total",
			Help: "Cache misses that required a synchronous load.",
		}, []string{"bucket"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_list_cache_refreshes_total",
			Help: "Background revalidations started after serving a stale entry.",
		}, []string{"bucket"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_list_cache_dropped_writes_total",
			Help: "Loads discarded because a newer load was issued for the same key.",
		}, []string{"bucket"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_list_cache_errors_total",
			Help: "Redis errors that forced a direct load.",
		}, []string{"bucket"}),
	}
	for _, c := range []**prometheus.CounterVec{&m.hits, &m.misses, &m.refreshes, &m.dropped, &m.errors} {
		if err := reg.Register(*c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					*c = existing
					continue
				}
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hit(bucket string) {
	if m != nil {
		m.hits.WithLabelValues(bucket).Inc()
	}
}

func (m *Metrics) miss(bucket string) {
	if m != nil {
		m.misses.WithLabelValues(bucket).Inc()
	}
}

func (m *Metrics) refresh(bucket string) {
	if m != nil {
		m.refreshes.WithLabelValues(bucket).Inc()
	}
}

func (m *Metrics) drop(bucket string) {
	if m != nil {
		m.dropped.WithLabelValues(bucket).Inc()
	}
}

func (m *Metrics) fail(bucket string) {
	if m != nil {
		m.errors.WithLabelValues(bucket).Inc()
	}
}
