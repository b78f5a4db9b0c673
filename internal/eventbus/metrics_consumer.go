package eventbus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matthewbaird/ksqlplan/internal/event"
)

// MetricsConsumer counts planned and rejected statements.
type MetricsConsumer struct {
	statements *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   prometheus.Histogram
	catalog    prometheus.Counter
}

// NewMetricsConsumer registers the planner metrics with reg.
func NewMetricsConsumer(reg prometheus.Registerer) *MetricsConsumer {
	f := promauto.With(reg)
	return &MetricsConsumer{
		statements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ksqlplan",
			Name:      "statements_planned_total",
			Help:      "Statements submitted for planning, by result.",
		}, []string{"result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ksqlplan",
			Name:      "plan_errors_total",
			Help:      "Rejected statements, by error kind.",
		}, []string{"kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ksqlplan",
			Name:      "plan_duration_seconds",
			Help:      "Time spent parsing, analyzing and planning a statement.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		catalog: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ksqlplan",
			Name:      "catalog_changes_total",
			Help:      "Catalog loads and imports.",
		}),
	}
}

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.PlanEvent) error {
	switch evt.EventType {
	case event.StatementPlanned:
		c.statements.WithLabelValues("ok").Inc()
		c.duration.Observe(evt.Duration.Seconds())
	case event.StatementRejected:
		c.statements.WithLabelValues("error").Inc()
		c.errors.WithLabelValues(evt.ErrorKind).Inc()
		c.duration.Observe(evt.Duration.Seconds())
	case event.CatalogChanged:
		c.catalog.Inc()
	}
	return nil
}
