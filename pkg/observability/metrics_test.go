package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/swissknife/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.StepMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	steps, err := observability.NewStepMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return steps, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestStepMetrics_RecordStep(t *testing.T) {
	t.Parallel()

	steps, reader := setupTestMeter(t)

	steps.RecordStep(context.Background(), "setup", observability.StatusOK, 100*time.Millisecond)

	rm := collectMetrics(t, reader)
	require.NotNil(t, findMetric(rm, "swissknife.steps.total"))
	require.NotNil(t, findMetric(rm, "swissknife.step.duration.seconds"))
	assert.Nil(t, findMetric(rm, "swissknife.errors.total"))
}

func TestStepMetrics_TrackError(t *testing.T) {
	t.Parallel()

	steps, reader := setupTestMeter(t)

	done := steps.Track(context.Background(), "build")
	done(errors.New("autobuild failed"))

	rm := collectMetrics(t, reader)

	errTotal := findMetric(rm, "swissknife.errors.total")
	require.NotNil(t, errTotal)

	sum, ok := errTotal.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestStepMetrics_RecordLanguages(t *testing.T) {
	t.Parallel()

	steps, reader := setupTestMeter(t)

	steps.RecordLanguages(context.Background(), 2, 1)

	gauge, ok := findMetric(collectMetrics(t, reader), "swissknife.languages").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, gauge.DataPoints, 2)
}
