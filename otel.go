package courier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/courier"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the courier service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	sendLatency   metric.Float64Histogram
	sendCount     metric.Int64Counter
	sendErrors    metric.Int64Counter
	fetchLatency  metric.Float64Histogram
	fetchCount    metric.Int64Counter
	fetchErrors   metric.Int64Counter
	deleteLatency metric.Float64Histogram
	deleteCount   metric.Int64Counter
	deleteErrors  metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	// Send metrics
	o.sendLatency, err = meter.Float64Histogram(
		"courier.send.duration",
		metric.WithDescription("Duration of send operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"courier.send.count",
		metric.WithDescription("Number of messages sent"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"courier.send.errors",
		metric.WithDescription("Number of send errors"),
	)
	if err != nil {
		return err
	}

	// Fetch metrics (both new and range fetches, distinguished by mode attribute)
	o.fetchLatency, err = meter.Float64Histogram(
		"courier.fetch.duration",
		metric.WithDescription("Duration of fetch operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.fetchCount, err = meter.Int64Counter(
		"courier.fetch.count",
		metric.WithDescription("Number of fetch operations"),
	)
	if err != nil {
		return err
	}

	o.fetchErrors, err = meter.Int64Counter(
		"courier.fetch.errors",
		metric.WithDescription("Number of fetch errors"),
	)
	if err != nil {
		return err
	}

	// Delete metrics
	o.deleteLatency, err = meter.Float64Histogram(
		"courier.delete.duration",
		metric.WithDescription("Duration of delete operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.deleteCount, err = meter.Int64Counter(
		"courier.delete.count",
		metric.WithDescription("Number of delete operations"),
	)
	if err != nil {
		return err
	}

	o.deleteErrors, err = meter.Int64Counter(
		"courier.delete.errors",
		metric.WithDescription("Number of delete errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// Caller should call the returned func with the operation's final error.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordSend records send operation metrics.
func (o *otelInstrumentation) recordSend(ctx context.Context, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}

	o.sendLatency.Record(ctx, duration.Seconds())
	o.sendCount.Add(ctx, 1)
	if err != nil {
		o.sendErrors.Add(ctx, 1)
	}
}

// recordFetch records fetch operation metrics.
// mode is "new" or "range".
func (o *otelInstrumentation) recordFetch(ctx context.Context, duration time.Duration, mode string, resultCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("result_count", resultCount),
	)

	o.fetchLatency.Record(ctx, duration.Seconds(), attrs)
	o.fetchCount.Add(ctx, 1, attrs)
	if err != nil {
		o.fetchErrors.Add(ctx, 1, attrs)
	}
}

// recordDelete records delete operation metrics.
func (o *otelInstrumentation) recordDelete(ctx context.Context, duration time.Duration, deleted int64, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int64("deleted_count", deleted),
	)

	o.deleteLatency.Record(ctx, duration.Seconds(), attrs)
	o.deleteCount.Add(ctx, 1, attrs)
	if err != nil {
		o.deleteErrors.Add(ctx, 1, attrs)
	}
}
