package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission-level OpenTelemetry metrics. A zero value is
// valid and records nothing.
type Observability struct {
	meterProvider      *metric.MeterProvider
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
}

// New wires an OpenTelemetry meter to the Prometheus exporter. Exporter
// failures degrade to a no-op recorder.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	counter, err := meter.Int64Counter(
		"submissions.processed",
		otelmetric.WithDescription("Number of form submissions processed"),
	)
	if err != nil {
		return &Observability{meterProvider: provider}, err
	}

	duration, err := meter.Float64Histogram(
		"submissions.duration",
		otelmetric.WithDescription("Form submission processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{meterProvider: provider, submissionCounter: counter}, err
	}

	return &Observability{
		meterProvider:      provider,
		submissionCounter:  counter,
		submissionDuration: duration,
	}, nil
}

func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordSubmission(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.submissionCounter != nil {
		o.submissionCounter.Add(ctx, 1, attrs)
	}
	if o.submissionDuration != nil {
		o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
