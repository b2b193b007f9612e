package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsTenantLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tenant_id", "123"),
		attribute.String("resource", "rooms"),
		attribute.String("backend", "gorm"),
	)
	require.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("tenant_id"), attr.Key)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGateDecision(context.Background(), "feature", true, "")
		m.RecordLedgerIncrement(context.Background(), "rooms", "gorm")
		m.RecordLedgerFailure(context.Background(), "rooms", "gorm")
		m.RecordLifecycleEvent(context.Background(), "stripe", "invoice.paid", "applied")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordGateDecision(context.Background(), "limit", false, "limit_exceeded")
	})
}
