// Package telemetry provides observability infrastructure including
// OpenTelemetry metrics support for the event store.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	saves                metric.Int64Counter
	replacements         metric.Int64Counter
	discards             metric.Int64Counter
	deletes              metric.Int64Counter
	degradations         metric.Int64Counter
	lifecycleTransitions metric.Int64Counter
	wipes                metric.Int64Counter

	// Histograms
	saveDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	storedEvents metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/plumenote/eventstore").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/plumenote/eventstore",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	// Counters
	mp.saves, err = mp.meter.Int64Counter(
		"eventstore.saves",
		metric.WithDescription("Number of save operations"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		return err
	}

	mp.replacements, err = mp.meter.Int64Counter(
		"eventstore.replacements",
		metric.WithDescription("Number of records removed by replacement"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	mp.discards, err = mp.meter.Int64Counter(
		"eventstore.discards",
		metric.WithDescription("Number of arrivals discarded as equal or older"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	mp.deletes, err = mp.meter.Int64Counter(
		"eventstore.deletes",
		metric.WithDescription("Number of explicit deletions"),
		metric.WithUnit("{delete}"),
	)
	if err != nil {
		return err
	}

	mp.degradations, err = mp.meter.Int64Counter(
		"eventstore.degradations",
		metric.WithDescription("Number of operations routed to the memory fallback"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return err
	}

	mp.lifecycleTransitions, err = mp.meter.Int64Counter(
		"eventstore.lifecycle.transitions",
		metric.WithDescription("Number of lifecycle state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.wipes, err = mp.meter.Int64Counter(
		"eventstore.wipes",
		metric.WithDescription("Number of full store wipes"),
		metric.WithUnit("{wipe}"),
	)
	if err != nil {
		return err
	}

	// Histograms
	mp.saveDuration, err = mp.meter.Float64Histogram(
		"eventstore.save.duration",
		metric.WithDescription("Duration of save operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Gauges (UpDownCounters)
	mp.storedEvents, err = mp.meter.Int64UpDownCounter(
		"eventstore.events.stored",
		metric.WithDescription("Number of events currently stored"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordSave records a save operation and its duration.
func (mp *MetricsProvider) RecordSave(ctx context.Context, class, outcome string, degraded bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("event.class", class),
		attribute.String("save.outcome", outcome),
		attribute.Bool("degraded", degraded),
	}

	mp.saves.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.saveDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordReplacement records records removed by a replacement.
func (mp *MetricsProvider) RecordReplacement(ctx context.Context, class string, replaced int64) {
	attrs := []attribute.KeyValue{
		attribute.String("event.class", class),
	}

	mp.replacements.Add(ctx, replaced, metric.WithAttributes(attrs...))
}

// RecordDiscard records an arrival discarded as equal or older.
func (mp *MetricsProvider) RecordDiscard(ctx context.Context, class string) {
	attrs := []attribute.KeyValue{
		attribute.String("event.class", class),
	}

	mp.discards.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDelete records an explicit deletion.
func (mp *MetricsProvider) RecordDelete(ctx context.Context) {
	mp.deletes.Add(ctx, 1)
}

// RecordDegradation records an operation routed to the memory fallback.
func (mp *MetricsProvider) RecordDegradation(ctx context.Context, reason string) {
	attrs := []attribute.KeyValue{
		attribute.String("degradation.reason", reason),
	}

	mp.degradations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLifecycleTransition records a lifecycle state transition.
func (mp *MetricsProvider) RecordLifecycleTransition(ctx context.Context, fromState, toState string) {
	attrs := []attribute.KeyValue{
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
	}

	mp.lifecycleTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWipe records a full store wipe.
func (mp *MetricsProvider) RecordWipe(ctx context.Context) {
	mp.wipes.Add(ctx, 1)
}

// AddStoredEvents adjusts the stored-event gauge by delta.
func (mp *MetricsProvider) AddStoredEvents(ctx context.Context, delta int64) {
	mp.storedEvents.Add(ctx, delta)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordSave is a no-op.
func (n *NoopMetricsProvider) RecordSave(ctx context.Context, class, outcome string, degraded bool, duration time.Duration) {
}

// RecordReplacement is a no-op.
func (n *NoopMetricsProvider) RecordReplacement(ctx context.Context, class string, replaced int64) {}

// RecordDiscard is a no-op.
func (n *NoopMetricsProvider) RecordDiscard(ctx context.Context, class string) {}

// RecordDelete is a no-op.
func (n *NoopMetricsProvider) RecordDelete(ctx context.Context) {}

// RecordDegradation is a no-op.
func (n *NoopMetricsProvider) RecordDegradation(ctx context.Context, reason string) {}

// RecordLifecycleTransition is a no-op.
func (n *NoopMetricsProvider) RecordLifecycleTransition(ctx context.Context, fromState, toState string) {
}

// RecordWipe is a no-op.
func (n *NoopMetricsProvider) RecordWipe(ctx context.Context) {}

// AddStoredEvents is a no-op.
func (n *NoopMetricsProvider) AddStoredEvents(ctx context.Context, delta int64) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordSave(ctx context.Context, class, outcome string, degraded bool, duration time.Duration)
	RecordReplacement(ctx context.Context, class string, replaced int64)
	RecordDiscard(ctx context.Context, class string)
	RecordDelete(ctx context.Context)
	RecordDegradation(ctx context.Context, reason string)
	RecordLifecycleTransition(ctx context.Context, fromState, toState string)
	RecordWipe(ctx context.Context)
	AddStoredEvents(ctx context.Context, delta int64)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
