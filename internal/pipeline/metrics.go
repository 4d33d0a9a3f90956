package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for batch runs. Each Metrics has
// its own registry so several runs in one process do not collide.
type Metrics struct {
	registry     *prometheus.Registry
	cases        *prometheus.CounterVec
	masks        *prometheus.CounterVec
	regionArea   prometheus.Histogram
	caseDuration prometheus.Histogram
}

// NewMetrics creates and registers the batch collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mass_tools",
			Name:      "cases_total",
			Help:      "Cases processed, by outcome.",
		}, []string{"outcome"}),
		masks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mass_tools",
			Name:      "masks_total",
			Help:      "Masks processed, by status.",
		}, []string{"status"}),
		regionArea: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mass_tools",
			Name:      "region_area_pixels",
			Help:      "Contour area of drawn regions in square pixels.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}),
		caseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mass_tools",
			Name:      "case_duration_seconds",
			Help:      "Wall time spent processing one case.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.cases, m.masks, m.regionArea, m.caseDuration)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one case result.
func (m *Metrics) Observe(r Result) {
	outcome := "failure"
	if r.Success {
		outcome = "success"
	}
	m.cases.WithLabelValues(outcome).Inc()
	m.caseDuration.Observe(r.Duration.Seconds())

	for _, mo := range r.Masks {
		m.masks.WithLabelValues(string(mo.Status)).Inc()
		if mo.Region != nil {
			m.regionArea.Observe(mo.Region.Area)
		}
	}
}

// WriteTextfile writes the current values in the node_exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
