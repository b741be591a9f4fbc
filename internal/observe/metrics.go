// Package observe provides application-wide observability primitives for
// Aisle: OpenTelemetry metrics, tracing, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Aisle metrics.
const meterName = "github.com/karlvoss/aisle"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// NLUFastDuration tracks fast-path extraction latency.
	NLUFastDuration metric.Float64Histogram

	// NLUFallbackDuration tracks LLM fallback extraction latency.
	NLUFallbackDuration metric.Float64Histogram

	// ActionDuration tracks list mutation latency by intent.
	ActionDuration metric.Float64Histogram

	// RecommendDuration tracks suggestion aggregation latency.
	RecommendDuration metric.Float64Histogram

	// --- Counters ---

	// Commands counts interpreted commands. Use with attributes:
	//   attribute.String("intent", ...), attribute.String("method", ...)
	Commands metric.Int64Counter

	// FallbackInvocations counts LLM fallback attempts. Use with attribute:
	//   attribute.String("outcome", "used"|"degraded")
	FallbackInvocations metric.Int64Counter

	// ProviderErrors counts collaborator failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for a
// voice command pipeline: sub-millisecond fast parses up to multi-second LLM
// round trips.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("aisle.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NLUFastDuration, err = m.Float64Histogram("aisle.nlu.fast.duration",
		metric.WithDescription("Latency of fast-path command extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NLUFallbackDuration, err = m.Float64Histogram("aisle.nlu.fallback.duration",
		metric.WithDescription("Latency of LLM fallback extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActionDuration, err = m.Float64Histogram("aisle.action.duration",
		metric.WithDescription("Latency of list mutations by intent."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecommendDuration, err = m.Float64Histogram("aisle.recommend.duration",
		metric.WithDescription("Latency of suggestion aggregation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Commands, err = m.Int64Counter("aisle.commands",
		metric.WithDescription("Total interpreted commands by intent and extraction method."),
	); err != nil {
		return nil, err
	}
	if met.FallbackInvocations, err = m.Int64Counter("aisle.nlu.fallback.invocations",
		metric.WithDescription("Total LLM fallback attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("aisle.provider.errors",
		metric.WithDescription("Total collaborator failures by provider and kind."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("aisle.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCommand records one interpreted command.
func (m *Metrics) RecordCommand(ctx context.Context, intent, method string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("intent", intent),
			attribute.String("method", method),
		),
	)
}

// RecordFallback records one LLM fallback attempt. outcome is "used" when the
// fallback result was adopted and "degraded" when the fast result was kept.
func (m *Metrics) RecordFallback(ctx context.Context, outcome string, d time.Duration) {
	m.FallbackInvocations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	m.NLUFallbackDuration.Record(ctx, d.Seconds())
}

// RecordProviderError records one collaborator failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordAction records one list mutation.
func (m *Metrics) RecordAction(ctx context.Context, intent string, d time.Duration) {
	m.ActionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("intent", intent)),
	)
}

// RecordRecommend records one suggestion query.
func (m *Metrics) RecordRecommend(ctx context.Context, d time.Duration) {
	m.RecommendDuration.Record(ctx, d.Seconds())
}
