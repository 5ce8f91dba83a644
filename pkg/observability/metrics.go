package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricStepsTotal   = "swissknife.steps.total"
	metricStepDuration = "swissknife.step.duration.seconds"
	metricErrorsTotal  = "swissknife.errors.total"
	metricLanguages    = "swissknife.languages"

	attrStep   = "step"
	attrStatus = "status"
	attrKind   = "kind"

	// StatusOK marks a step that succeeded.
	StatusOK = "ok"
	// StatusError marks a step that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers quick steps up to hour-long traced builds.
var durationBucketBoundaries = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600}

// StepMetrics holds the instruments recorded for every command and setup phase.
type StepMetrics struct {
	stepsTotal   metric.Int64Counter
	stepDuration metric.Float64Histogram
	errorsTotal  metric.Int64Counter
	languages    metric.Int64Gauge
}

// NewStepMetrics creates the step instruments from the given meter.
func NewStepMetrics(mt metric.Meter) (*StepMetrics, error) {
	stepsTotal, err := mt.Int64Counter(metricStepsTotal,
		metric.WithDescription("Total number of executed steps"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStepsTotal, err)
	}

	stepDuration, err := mt.Float64Histogram(metricStepDuration,
		metric.WithDescription("Step duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStepDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed steps"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	langs, err := mt.Int64Gauge(metricLanguages,
		metric.WithDescription("Number of languages set up, by kind"),
		metric.WithUnit("{language}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLanguages, err)
	}

	return &StepMetrics{
		stepsTotal:   stepsTotal,
		stepDuration: stepDuration,
		errorsTotal:  errorsTotal,
		languages:    langs,
	}, nil
}

// RecordStep records a completed step with its status and duration.
func (sm *StepMetrics) RecordStep(ctx context.Context, step, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrStep, step),
		attribute.String(attrStatus, status),
	)

	sm.stepsTotal.Add(ctx, 1, attrs)
	sm.stepDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		sm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStep, step)))
	}
}

// Track starts timing step. The returned function records it with the
// status implied by its error argument.
func (sm *StepMetrics) Track(ctx context.Context, step string) func(err error) {
	start := time.Now()

	return func(err error) {
		status := StatusOK
		if err != nil {
			status = StatusError
		}

		sm.RecordStep(ctx, step, status, time.Since(start))
	}
}

// RecordLanguages records how many scanned and traced languages were set up.
func (sm *StepMetrics) RecordLanguages(ctx context.Context, scanned, traced int) {
	sm.languages.Record(ctx, int64(scanned), metric.WithAttributes(attribute.String(attrKind, "scanned")))
	sm.languages.Record(ctx, int64(traced), metric.WithAttributes(attribute.String(attrKind, "traced")))
}
