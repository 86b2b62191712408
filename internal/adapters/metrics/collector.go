package metrics

import (
	"net/http"
	"time"

	"github.com/bnema/draftguard/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "dg"

// Collector holds the monitor's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	saves          *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	savesSkipped   prometheus.Counter
	sessionWarned  prometheus.Counter
	changesCapture prometheus.Counter
}

var _ ports.Metrics = (*Collector)(nil)

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "autosave_total",
				Help:      "Auto-save attempts by outcome",
			},
			[]string{"outcome"},
		),
		saveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "autosave_duration_seconds",
				Help:      "Draft save round-trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		savesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "autosave_skipped_total",
				Help:      "Save requests dropped because a save was in flight",
			},
		),
		sessionWarned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "session_warnings_total",
				Help:      "Session timeout warnings shown",
			},
		),
		changesCapture: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "captured_changes_total",
				Help:      "Field change notifications and merges captured",
			},
		),
	}

	registry.MustRegister(c.saves, c.saveDuration, c.savesSkipped, c.sessionWarned, c.changesCapture)

	for _, outcome := range []ports.SaveOutcome{ports.SaveOutcomeSuccess, ports.SaveOutcomeFailure, ports.SaveOutcomeRejected} {
		c.saves.WithLabelValues(string(outcome))
	}

	return c
}

func (c *Collector) ObserveSave(outcome ports.SaveOutcome, elapsed time.Duration) {
	c.saves.WithLabelValues(string(outcome)).Inc()
	c.saveDuration.Observe(elapsed.Seconds())
}

func (c *Collector) SaveSkipped() {
	c.savesSkipped.Inc()
}

func (c *Collector) SessionWarning() {
	c.sessionWarned.Inc()
}

func (c *Collector) ChangeCaptured() {
	c.changesCapture.Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
