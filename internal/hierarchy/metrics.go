package hierarchy

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("lattice.hierarchy")
	meter  = otel.Meter("lattice.hierarchy")
)

var (
	registerLatency metric.Float64Histogram
	typesRegistered metric.Int64Counter
	queryLatency    metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		registerLatency, err = meter.Float64Histogram(
			"hierarchy_register_duration_seconds",
			metric.WithDescription("Duration of type registration including frontend resolution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		typesRegistered, err = meter.Int64Counter(
			"hierarchy_types_registered_total",
			metric.WithDescription("Number of class nodes added to the hierarchy"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"hierarchy_query_duration_seconds",
			metric.WithDescription("Duration of hierarchy queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordRegisterMetrics(ctx context.Context, duration time.Duration, added int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	registerLatency.Record(ctx, duration.Seconds(), attrs)
	if added > 0 {
		typesRegistered.Add(ctx, int64(added))
	}
}

// recordQueryMetrics records the latency of a query started at start. It is
// meant to be deferred.
func recordQueryMetrics(ctx context.Context, op string, start time.Time) {
	if err := initMetrics(); err != nil {
		return
	}
	queryLatency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query_type", op)),
	)
}

func startSpan(ctx context.Context, name, session string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("hierarchy.session", session))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
