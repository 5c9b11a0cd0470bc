package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
// Used by watch mode, where a long-lived process serves /metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	exportDuration prom.Histogram
	exportOutcome  *prom.CounterVec
	notebooks      prom.Gauge
	notes          prom.Gauge
	resources      prom.Gauge
	brokenLinks    prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "jopsify",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual export stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.exportDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "jopsify",
			Name:      "export_duration_seconds",
			Help:      "Total export duration",
			Buckets:   prom.DefBuckets,
		})
		pr.exportOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "jopsify",
			Name:      "export_outcomes_total",
			Help:      "Export outcomes by final status",
		}, []string{"outcome"})
		pr.notebooks = prom.NewGauge(prom.GaugeOpts{
			Namespace: "jopsify",
			Name:      "notebooks_exported",
			Help:      "Notebooks in the last successful export",
		})
		pr.notes = prom.NewGauge(prom.GaugeOpts{
			Namespace: "jopsify",
			Name:      "notes_exported",
			Help:      "Notes in the last successful export",
		})
		pr.resources = prom.NewGauge(prom.GaugeOpts{
			Namespace: "jopsify",
			Name:      "resources_exported",
			Help:      "Resources copied in the last successful export",
		})
		pr.brokenLinks = prom.NewCounter(prom.CounterOpts{
			Namespace: "jopsify",
			Name:      "broken_links_total",
			Help:      "Body references degraded to plain text",
		})
		reg.MustRegister(pr.stageDuration, pr.exportDuration, pr.exportOutcome,
			pr.notebooks, pr.notes, pr.resources, pr.brokenLinks)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveExportDuration(d time.Duration) {
	if p == nil || p.exportDuration == nil {
		return
	}
	p.exportDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncExportOutcome(outcome OutcomeLabel) {
	if p == nil || p.exportOutcome == nil {
		return
	}
	p.exportOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetNotebooksExported(n int) {
	if p == nil || p.notebooks == nil {
		return
	}
	p.notebooks.Set(float64(n))
}

func (p *PrometheusRecorder) SetNotesExported(n int) {
	if p == nil || p.notes == nil {
		return
	}
	p.notes.Set(float64(n))
}

func (p *PrometheusRecorder) SetResourcesExported(n int) {
	if p == nil || p.resources == nil {
		return
	}
	p.resources.Set(float64(n))
}

func (p *PrometheusRecorder) AddBrokenLinks(n int) {
	if p == nil || p.brokenLinks == nil || n <= 0 {
		return
	}
	p.brokenLinks.Add(float64(n))
}

// HTTPHandler returns an http.Handler serving the registry's metrics.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
