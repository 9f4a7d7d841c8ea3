// Package metrics records analysis counters and distributions with the
// Prometheus client. A nil *Metrics is valid and records nothing, so
// library code can take one unconditionally.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "microgel"

// Outcome labels for snapshot analysis.
const (
	OutcomeOK           = "ok"
	OutcomeDegenerate   = "degenerate"
	OutcomeInconsistent = "inconsistent"
	OutcomeError        = "error"
)

// FacetBuckets spans hull facet counts from a bare tetrahedron to dense gels.
var FacetBuckets = prometheus.ExponentialBuckets(4, 4, 8)

// Metrics holds every collector microgel exports.
type Metrics struct {
	registry *prometheus.Registry

	Snapshots       *prometheus.CounterVec
	Facets          prometheus.Histogram
	AnalysisSeconds prometheus.Histogram
	HullVolume      prometheus.Gauge
	EllipsoidVolume prometheus.Gauge
	Evaluations     *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_analyzed_total",
			Help:      "Snapshots analysed, by outcome.",
		}, []string{"outcome"}),
		Facets: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hull_facets",
			Help:      "Number of convex hull facets per snapshot.",
			Buckets:   FacetBuckets,
		}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time spent analysing one snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		HullVolume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hull_volume",
			Help:      "Hull volume of the most recent snapshot.",
		}),
		EllipsoidVolume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ellipsoid_volume",
			Help:      "Equivalent ellipsoid volume of the most recent snapshot.",
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_evaluations_total",
			Help:      "Script evaluations, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.Snapshots, m.Facets, m.AnalysisSeconds, m.HullVolume, m.EllipsoidVolume, m.Evaluations)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSnapshot records a successful analysis.
func (m *Metrics) ObserveSnapshot(facets int, hullVolume, ellipsoidVolume float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(OutcomeOK).Inc()
	m.Facets.Observe(float64(facets))
	m.AnalysisSeconds.Observe(elapsed.Seconds())
	m.HullVolume.Set(hullVolume)
	m.EllipsoidVolume.Set(ellipsoidVolume)
}

// ObserveFailure records a snapshot that could not be analysed.
func (m *Metrics) ObserveFailure(outcome string) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation records a script evaluation result ("ok" or "error").
func (m *Metrics) ObserveEvaluation(result string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", path, err)
	}
	return nil
}
