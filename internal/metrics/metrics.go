// Package metrics exposes governance decisions as Prometheus metrics.
//
// Metrics (namespace from config, "loggov" by default):
//   - payloads_total: governed payloads by outcome
//   - rule_matches_total: PII matches by rule
//   - schema_violations_total: missing required fields by field
//   - config_reloads_total: governance reload attempts by result
//   - active_rules: rules in the active config
//   - apply_duration_seconds: time spent applying governance
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raaihank/loggov/internal/config"
	"github.com/raaihank/loggov/internal/governance"
)

// Reload results.
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// Collector records governance metrics into its own registry. It implements
// governance.Observer.
type Collector struct {
	registry *prometheus.Registry

	payloadsTotal    *prometheus.CounterVec
	ruleMatchesTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	reloadsTotal     *prometheus.CounterVec
	activeRules      prometheus.Gauge
	applyDuration    prometheus.Histogram
}

// NewCollector creates and registers the governance metrics. A nil registry
// gets a fresh one with the Go and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "loggov"
	}

	c := &Collector{
		registry: registry,

		payloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payloads_total",
				Help:      "Total number of governed payloads by outcome",
			},
			[]string{"outcome"},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of PII matches by rule",
			},
			[]string{"rule"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_violations_total",
				Help:      "Total number of missing required fields by field",
			},
			[]string{"field"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of governance config reloads by result",
			},
			[]string{"result"},
		),

		activeRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_rules",
				Help:      "Number of rules in the active governance config",
			},
		),

		applyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "apply_duration_seconds",
				Help:      "Duration of governance apply in seconds",
				// 1µs to 16ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),
	}

	registry.MustRegister(
		c.payloadsTotal,
		c.ruleMatchesTotal,
		c.violationsTotal,
		c.reloadsTotal,
		c.activeRules,
		c.applyDuration,
	)

	return c
}

// ObserveResult implements governance.Observer.
func (c *Collector) ObserveResult(result governance.GovernedResult, elapsed time.Duration) {
	c.payloadsTotal.WithLabelValues(string(result.Outcome)).Inc()
	for _, f := range result.Findings {
		c.ruleMatchesTotal.WithLabelValues(f.Rule).Add(float64(f.Count))
	}
	c.applyDuration.Observe(elapsed.Seconds())
}

// ObserveViolation implements governance.Observer.
func (c *Collector) ObserveViolation(result governance.ValidationResult) {
	for _, field := range result.MissingFields {
		c.violationsTotal.WithLabelValues(field).Inc()
	}
}

// RecordReload counts a reload attempt and tracks the active rule count.
func (c *Collector) RecordReload(active *governance.Config, err error) {
	if err != nil {
		c.reloadsTotal.WithLabelValues(ReloadFailure).Inc()
	} else {
		c.reloadsTotal.WithLabelValues(ReloadSuccess).Inc()
	}
	if active != nil {
		c.SetActiveRules(len(active.Rules()))
	}
}

// SetActiveRules sets the active rule gauge.
func (c *Collector) SetActiveRules(n int) {
	c.activeRules.Set(float64(n))
}

// Registry returns the registry the collector registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
