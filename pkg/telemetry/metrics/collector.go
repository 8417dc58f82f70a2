package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/moderation"
)

// Classification outcomes.
const (
	OutcomeApproved = "approved"
	OutcomeFlagged  = "flagged"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Escalation step results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector owns every Prometheus metric of the service.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	classificationsTotal   *prometheus.CounterVec
	violationsTotal        *prometheus.CounterVec
	severityTotal          *prometheus.CounterVec
	classificationDuration *prometheus.HistogramVec
	escalationSteps        *prometheus.CounterVec
	escalationDropped      prometheus.Counter
	rulesLoaded            prometheus.Gauge
	rateLimited            *prometheus.CounterVec
	httpRequests           *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
}

// NewCollector creates and registers the metrics. A nil registry gets a
// fresh one.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		// Classification is regex work: 50µs to 100ms.
		cfg.DurationBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.1}
	}

	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		classificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("classifications_total", "Total classifications by content type and outcome")),
			[]string{"content_type", "outcome"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("violations_total", "Total detected violations by kind")),
			[]string{"kind"},
		),
		severityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("severity_total", "Total flagged verdicts by severity")),
			[]string{"severity"},
		),
		classificationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "classification_duration_seconds",
				Help:      "Duration of content classification in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"content_type"},
		),
		escalationSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("escalation_steps_total", "Escalation store writes by step and result")),
			[]string{"step", "result"},
		),
		escalationDropped: prometheus.NewCounter(
			prometheus.CounterOpts(opts("escalation_dropped_total", "Escalations dropped because the queue was full or closed")),
		),
		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts(opts("rules_loaded", "Number of custom rules currently loaded")),
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("rate_limited_total", "Classification requests rejected by the per-author rate limit")),
			[]string{"content_type"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("http_requests_total", "HTTP requests by method, route and status code")),
			[]string{"method", "route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.classificationsTotal,
		c.violationsTotal,
		c.severityTotal,
		c.classificationDuration,
		c.escalationSteps,
		c.escalationDropped,
		c.rulesLoaded,
		c.rateLimited,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordClassification records a completed classification.
func (c *Collector) RecordClassification(contentType moderation.ContentType, v *moderation.Verdict, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	ct := string(contentType)
	c.classificationDuration.WithLabelValues(ct).Observe(duration.Seconds())

	switch {
	case !v.Valid:
		c.classificationsTotal.WithLabelValues(ct, OutcomeInvalid).Inc()
	case v.Flagged:
		c.classificationsTotal.WithLabelValues(ct, OutcomeFlagged).Inc()
		c.severityTotal.WithLabelValues(string(v.Severity)).Inc()
	default:
		c.classificationsTotal.WithLabelValues(ct, OutcomeApproved).Inc()
	}
	for _, viol := range v.Violations {
		c.violationsTotal.WithLabelValues(string(viol.Kind)).Inc()
	}
}

// RecordClassificationError records a classification that failed.
func (c *Collector) RecordClassificationError(contentType moderation.ContentType) {
	if !c.Enabled() {
		return
	}
	c.classificationsTotal.WithLabelValues(string(contentType), OutcomeError).Inc()
}

// ObserveEscalationStep records one escalation store write.
func (c *Collector) ObserveEscalationStep(step string, err error) {
	if !c.Enabled() {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.escalationSteps.WithLabelValues(step, result).Inc()
}

// ObserveEscalationDropped records a dropped escalation.
func (c *Collector) ObserveEscalationDropped() {
	if !c.Enabled() {
		return
	}
	c.escalationDropped.Inc()
}

// SetRulesLoaded sets the custom rule gauge.
func (c *Collector) SetRulesLoaded(n int) {
	if !c.Enabled() {
		return
	}
	c.rulesLoaded.Set(float64(n))
}

// RecordRateLimited records a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited(contentType moderation.ContentType) {
	if !c.Enabled() {
		return
	}
	c.rateLimited.WithLabelValues(string(contentType)).Inc()
}

// RecordHTTPRequest records a served HTTP request. route is the registered
// pattern, not the raw path, to bound cardinality.
func (c *Collector) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
