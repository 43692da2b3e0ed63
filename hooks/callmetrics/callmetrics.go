// Package callmetrics exports Prometheus collectors for resource
// method calls: totals by method and outcome, transaction promotions,
// unique constraint conflicts and a latency histogram. It observes
// through spi.CallObserver rather than hook receivers, so an
// instrumented method keeps its no-hook fast path and the promotion
// counter reports what the dispatcher actually did.
package callmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/api"
	"go.kotori.dev/arbor/spi"
)

var _ spi.CallObserver = &Metrics{}

// Metrics holds the collectors for one tree, registered in one
// Registerer.
type Metrics struct {
	calls      *prometheus.CounterVec
	promotions *prometheus.CounterVec
	conflicts  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Subsystem: "method",
			Name:      "calls_total",
			Help:      "Method calls by qualified method name and outcome.",
		}, []string{"method", "status"}),
		promotions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Subsystem: "method",
			Name:      "tx_promotions_total",
			Help:      "Calls that ran inside a transaction.",
		}, []string{"method"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Subsystem: "method",
			Name:      "unique_conflicts_total",
			Help:      "Calls rejected by a unique constraint.",
		}, []string{"method"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbor",
			Subsystem: "method",
			Name:      "call_duration_seconds",
			Help:      "Method call latency, planning through commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// ObserveCall implements spi.CallObserver.
func (m *Metrics) ObserveCall(ctx context.Context, o spi.CallObservation) {
	status := "ok"
	if o.Err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(o.Method, status).Inc()
	if o.Promoted {
		m.promotions.WithLabelValues(o.Method).Inc()
	}
	if arbor.IsUniqueConstraint(o.Err) {
		m.conflicts.WithLabelValues(o.Method).Inc()
	}
	m.duration.WithLabelValues(o.Method).Observe(o.Duration.Seconds())
}

// Install instruments every method under root and reports how many
// methods it touched.
func (m *Metrics) Install(root *api.Root) int {
	n := 0
	root.Walk(func(node *api.ResourceAPI) {
		for _, method := range node.Methods() {
			method.SetObserver(m)
			n++
		}
	})
	return n
}
