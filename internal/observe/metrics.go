// Package observe provides application-wide observability primitives for
// the Auricle gateway: OpenTelemetry metrics, tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Auricle metrics.
const meterName = "github.com/soundbarrier/auricle"

// Metrics holds all OpenTelemetry metric instruments for the gateway.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Admission ---

	// Admissions counts connections handed to the session layer.
	Admissions metric.Int64Counter

	// Rejections counts upgrade attempts that ended in a 401. Use with
	// attribute.String("reason", ...): "credential_missing",
	// "authentication_failed", or "error".
	Rejections metric.Int64Counter

	// AuthDuration tracks credential validation latency.
	AuthDuration metric.Float64Histogram

	// --- Audio path ---

	// FramesEncoded counts codec frames successfully produced.
	FramesEncoded metric.Int64Counter

	// FrameEncodeFailures counts frames dropped because the codec failed.
	FrameEncodeFailures metric.Int64Counter

	// MicSamplesProcessed counts microphone samples run through the filter.
	MicSamplesProcessed metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live device sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the admission path, where anything beyond a couple of seconds is already
// a failed user experience.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Admissions, err = m.Int64Counter("auricle.gate.admissions",
		metric.WithDescription("Total connections admitted to the session layer."),
	); err != nil {
		return nil, err
	}
	if met.Rejections, err = m.Int64Counter("auricle.gate.rejections",
		metric.WithDescription("Total upgrade attempts rejected, by reason."),
	); err != nil {
		return nil, err
	}
	if met.FramesEncoded, err = m.Int64Counter("auricle.codec.frames_encoded",
		metric.WithDescription("Total codec frames successfully encoded."),
	); err != nil {
		return nil, err
	}
	if met.FrameEncodeFailures, err = m.Int64Counter("auricle.codec.frame_failures",
		metric.WithDescription("Total frames dropped due to codec failures."),
	); err != nil {
		return nil, err
	}
	if met.MicSamplesProcessed, err = m.Int64Counter("auricle.audio.mic_samples",
		metric.WithDescription("Total microphone samples run through the input filter."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.AuthDuration, err = m.Float64Histogram("auricle.gate.auth.duration",
		metric.WithDescription("Latency of credential validation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("auricle.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("auricle.active_sessions",
		metric.WithDescription("Number of live device sessions."),
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
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
