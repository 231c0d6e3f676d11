// Package accessmetrics exposes the access control engine's
// Prometheus instrumentation: a grant/deny decision counter and a
// rule-scan-depth histogram, registered by the server alongside its
// own metrics.
package accessmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	DecisionsTotal *prometheus.CounterVec
	RuleScanDepth  prometheus.Histogram
}

// New builds an unregistered Metrics set.
func New() *Metrics {
	return &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Total number of access control decisions, labeled by result.",
		}, []string{"result"}),
		RuleScanDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "access_rule_scan_depth",
			Help:    "Number of rules walked before a decision was reached.",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
	}
}

// MustRegister registers m's collectors against reg.
func (m *Metrics) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(m.DecisionsTotal, m.RuleScanDepth)
}

// ObserveGrant records a grant decision.
func (m *Metrics) ObserveGrant() { m.DecisionsTotal.WithLabelValues("grant").Inc() }

// ObserveDeny records a deny decision.
func (m *Metrics) ObserveDeny() { m.DecisionsTotal.WithLabelValues("deny").Inc() }

// ObserveScanDepth records how many rules were walked before a decision.
func (m *Metrics) ObserveScanDepth(depth int) { m.RuleScanDepth.Observe(float64(depth)) }
