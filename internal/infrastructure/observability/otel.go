package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/orderdesk/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount             metric.Int64Counter
	RequestDuration          metric.Float64Histogram
	DecisionCount            metric.Int64Counter
	DepartmentLookupFailures metric.Int64Counter
	DepartmentCacheHits      metric.Int64Counter
	DepartmentCacheMisses    metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing, metric export, Go runtime metrics
// and log export. The returned function flushes and stops all three.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdowns := []func(context.Context) error{tracerProvider.Shutdown}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return shutdownAll(shutdowns), err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	shutdowns = append(shutdowns, meterProvider.Shutdown)

	if err := runtime.Start(
		runtime.WithMeterProvider(meterProvider),
		runtime.WithMinimumReadMemStatsInterval(15*time.Second),
	); err != nil {
		return shutdownAll(shutdowns), err
	}

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return shutdownAll(shutdowns), err
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	ExportLogs(loggerProvider)
	shutdowns = append(shutdowns, loggerProvider.Shutdown)

	return shutdownAll(shutdowns), nil
}

// shutdownAll stops providers in reverse order and returns the first error
func shutdownAll(shutdowns []func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var first error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			if err := shutdowns[i](ctx); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// InitMetrics initializes application metrics against the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decisionCount, err := meter.Int64Counter(
		"orders.decision.count",
		metric.WithDescription("Approve and reject attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	lookupFailures, err := meter.Int64Counter(
		"departments.lookup.failures",
		metric.WithDescription("Department name lookups that failed and were skipped"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"departments.cache.hit.count",
		metric.WithDescription("Department names served from cache"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"departments.cache.miss.count",
		metric.WithDescription("Department names fetched from the hospital API"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:             requestCount,
		RequestDuration:          requestDuration,
		DecisionCount:            decisionCount,
		DepartmentLookupFailures: lookupFailures,
		DepartmentCacheHits:      cacheHits,
		DepartmentCacheMisses:    cacheMisses,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordDecision records an approve or reject attempt. outcome is one of
// "success", "validation" or "backend".
func RecordDecision(ctx context.Context, metrics *Metrics, action, outcome string) {
	if metrics == nil {
		return
	}
	metrics.DecisionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision.action", action),
		attribute.String("decision.outcome", outcome),
	))
}

// RecordDepartmentLookupFailures records skipped department lookups
func RecordDepartmentLookupFailures(ctx context.Context, metrics *Metrics, failures int) {
	if metrics == nil || failures == 0 {
		return
	}
	metrics.DepartmentLookupFailures.Add(ctx, int64(failures))
}

// RecordDepartmentCache records a department cache hit or miss
func RecordDepartmentCache(ctx context.Context, metrics *Metrics, hit bool) {
	if metrics == nil {
		return
	}
	if hit {
		metrics.DepartmentCacheHits.Add(ctx, 1)
		return
	}
	metrics.DepartmentCacheMisses.Add(ctx, 1)
}
