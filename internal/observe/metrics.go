// Package observe provides application-wide observability primitives for
// Steward: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. All helper methods on
// [Metrics] are nil-receiver safe, so collaborators can carry an optional
// *Metrics without guarding every call site.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Steward metrics.
const meterName = "github.com/campushq/steward"

// Metrics holds all OpenTelemetry metric instruments for the command
// pipeline. All fields are safe for concurrent use, the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// CommandsTotal counts finished commands. Attributes:
	//   attribute.String("agent", ...), attribute.String("status", ...)
	CommandsTotal metric.Int64Counter

	// Clarifications counts questions asked back to the user. Attribute:
	//   attribute.String("agent", ...)
	Clarifications metric.Int64Counter

	// Confirmations counts destructive-action proposals. Attribute:
	//   attribute.String("agent", ...)
	Confirmations metric.Int64Counter

	// ProviderRequests counts model-provider calls. Attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderDuration tracks model-provider call latency.
	ProviderDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a pipeline whose slow path is one or two model calls.
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CommandsTotal, err = m.Int64Counter("steward.commands.total",
		metric.WithDescription("Finished commands by agent and terminal status."),
	); err != nil {
		return nil, err
	}
	if met.Clarifications, err = m.Int64Counter("steward.clarifications.total",
		metric.WithDescription("Clarification questions asked back to the user."),
	); err != nil {
		return nil, err
	}
	if met.Confirmations, err = m.Int64Counter("steward.confirmations.total",
		metric.WithDescription("Destructive-action confirmation proposals."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("steward.provider.requests",
		metric.WithDescription("Model-provider calls by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("steward.provider.duration",
		metric.WithDescription("Latency of model-provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("steward.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// CommandFinished records a command reaching a terminal status.
func (m *Metrics) CommandFinished(ctx context.Context, agent, status string) {
	if m == nil {
		return
	}
	m.CommandsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("status", status),
	))
}

// ClarificationAsked records a clarification question going out.
func (m *Metrics) ClarificationAsked(ctx context.Context, agent string) {
	if m == nil {
		return
	}
	m.Clarifications.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

// ConfirmationProposed records a destructive action being parked for
// confirmation.
func (m *Metrics) ConfirmationProposed(ctx context.Context, agent string) {
	if m == nil {
		return
	}
	m.Confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

// ProviderCall records one gateway provider attempt chain.
func (m *Metrics) ProviderCall(ctx context.Context, provider string, ok bool, latency time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	if provider == "" {
		provider = "none"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ProviderRequests.Add(ctx, 1, attrs)
	m.ProviderDuration.Record(ctx, latency.Seconds(), attrs)
}
