// Package telemetry provides process-level OpenTelemetry instruments for the
// pipeline: stage latency histograms, provider request/error counters, token
// and character usage counters, and retry counts. [InitProvider] attaches a
// Prometheus exporter, registered with the default Prometheus registry; this
// package serves no HTTP endpoint for it.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/ayy-em/storyforge"

// Metrics holds all OpenTelemetry metric instruments used by the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// StageDuration tracks wall-clock time spent in a named stage. Use with
	// attribute.String("stage", "outline"|"section"|"summarize"|"critic"|
	// "synthesis"|"stitch"|"mix").
	StageDuration metric.Float64Histogram

	// ProviderDuration tracks latency of a single provider call. Use with
	// attribute.String("provider", ...), attribute.String("kind", "llm"|"tts").
	ProviderDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderRetries counts retry attempts issued by the resilience policy.
	// Use with attribute.String("provider", ...).
	ProviderRetries metric.Int64Counter

	// JSONRepairs counts responses that required tiered JSON recovery. Use
	// with attribute.String("step", ...), attribute.Int("tier", ...).
	JSONRepairs metric.Int64Counter

	// --- Usage counters ---

	// TokensUsed accumulates prompt+completion tokens consumed. Use with
	// attribute.String("provider", ...), attribute.String("step", ...),
	// attribute.String("kind", "prompt"|"completion"|"total").
	TokensUsed metric.Int64Counter

	// CharactersSynthesized accumulates TTS input character counts. Use with
	// attribute.String("provider", ...).
	CharactersSynthesized metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// StageFailures counts stage aborts. Use with attribute.String("stage", ...).
	StageFailures metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// multi-second to multi-minute LLM and audio-tool calls rather than the
// sub-second buckets a realtime voice pipeline would use.
var latencyBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("storyforge.stage.duration",
		metric.WithDescription("Wall-clock duration of a pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("storyforge.provider.duration",
		metric.WithDescription("Latency of a single provider call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("storyforge.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRetries, err = m.Int64Counter("storyforge.provider.retries",
		metric.WithDescription("Total retry attempts issued by the resilience policy."),
	); err != nil {
		return nil, err
	}
	if met.JSONRepairs, err = m.Int64Counter("storyforge.json.repairs",
		metric.WithDescription("Total responses that required tiered JSON recovery."),
	); err != nil {
		return nil, err
	}

	if met.TokensUsed, err = m.Int64Counter("storyforge.tokens.used",
		metric.WithDescription("Total LLM tokens consumed by provider, step, and kind."),
	); err != nil {
		return nil, err
	}
	if met.CharactersSynthesized, err = m.Int64Counter("storyforge.tts.characters",
		metric.WithDescription("Total input characters sent to TTS providers."),
	); err != nil {
		return nil, err
	}

	if met.ProviderErrors, err = m.Int64Counter("storyforge.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.StageFailures, err = m.Int64Counter("storyforge.stage.failures",
		metric.WithDescription("Total stage aborts by stage name."),
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

// Default returns the package-level [Metrics] instance, creating it on first
// call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderRetry records a single retry attempt for provider.
func (m *Metrics) RecordProviderRetry(ctx context.Context, provider string) {
	m.ProviderRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordJSONRepair records a JSON recovery event for the given step and tier.
func (m *Metrics) RecordJSONRepair(ctx context.Context, step string, tier int) {
	m.JSONRepairs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("step", step),
			attribute.Int("tier", tier),
		),
	)
}

// RecordTokens records token usage broken out by kind ("prompt",
// "completion", "total"). Callers should skip kinds whose count is nil.
func (m *Metrics) RecordTokens(ctx context.Context, provider, step, kind string, n int) {
	m.TokensUsed.Add(ctx, int64(n),
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("step", step),
			attribute.String("kind", kind),
		),
	)
}

// RecordCharacters records TTS input character usage for provider.
func (m *Metrics) RecordCharacters(ctx context.Context, provider string, n int) {
	m.CharactersSynthesized.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordStageFailure records a stage abort for the given stage name.
func (m *Metrics) RecordStageFailure(ctx context.Context, stage string) {
	m.StageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
