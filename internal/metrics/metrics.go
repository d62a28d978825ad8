// Package metrics holds the Prometheus collectors for view renders and
// catalog refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calview"

// Recorder owns a private registry so the default Go runtime collectors stay
// out of /metrics. All methods are safe on a nil *Recorder.
type Recorder struct {
	registry *prometheus.Registry

	viewRenders     *prometheus.CounterVec
	segments        *prometheus.CounterVec
	malformedEvents *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	catalogEvents   prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		viewRenders: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_renders_total",
			Help:      "Number of view renders by view name.",
		}, []string{"view"}),
		segments: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_rendered_total",
			Help:      "Number of segments produced by view renders.",
		}, []string{"view"}),
		malformedEvents: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_events_total",
			Help:      "Events skipped during slicing because they end before they start.",
		}, []string{"view"}),
		refreshes: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Catalog refresh attempts by result (ok, partial, failed).",
		}, []string{"result"}),
		refreshDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of catalog refreshes.",
			Buckets:   prometheus.DefBuckets,
		}),
		catalogEvents: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_events",
			Help:      "Events currently held in the catalog snapshot.",
		}),
	}
}

func (r *Recorder) RecordRender(view string, segments, malformed int) {
	if r == nil {
		return
	}
	r.viewRenders.WithLabelValues(view).Inc()
	r.segments.WithLabelValues(view).Add(float64(segments))
	if malformed > 0 {
		r.malformedEvents.WithLabelValues(view).Add(float64(malformed))
	}
}

func (r *Recorder) RecordRefresh(result string, took time.Duration, events int) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(result).Inc()
	r.refreshDuration.Observe(took.Seconds())
	if result != "failed" {
		r.catalogEvents.Set(float64(events))
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the exposition format for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
