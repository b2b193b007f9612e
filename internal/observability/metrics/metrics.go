package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes entitlement-level instruments exported over OTLP.
type Metrics struct {
	gateDecisions    metric.Int64Counter
	ledgerIncrements metric.Int64Counter
	ledgerFailures   metric.Int64Counter
	lifecycleEvents  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "staydesk"
	}
	meter := provider.Meter(name)

	gateDecisions, err := meter.Int64Counter("staydesk_gate_decisions_total")
	if err != nil {
		return nil, err
	}
	ledgerIncrements, err := meter.Int64Counter("staydesk_ledger_increments_total")
	if err != nil {
		return nil, err
	}
	ledgerFailures, err := meter.Int64Counter("staydesk_ledger_failures_total")
	if err != nil {
		return nil, err
	}
	lifecycleEvents, err := meter.Int64Counter("staydesk_lifecycle_events_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gateDecisions:    gateDecisions,
		ledgerIncrements: ledgerIncrements,
		ledgerFailures:   ledgerFailures,
		lifecycleEvents:  lifecycleEvents,
	}, nil
}

// RecordGateDecision counts a feature gate evaluation.
func (m *Metrics) RecordGateDecision(ctx context.Context, kind string, allowed bool, code string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", kind),
		attribute.Bool("allowed", allowed),
		attribute.String("reason", code),
	)
	m.gateDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerIncrement counts an atomic counter update.
func (m *Metrics) RecordLedgerIncrement(ctx context.Context, resource, backend string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("resource", resource),
		attribute.String("backend", backend),
	)
	m.ledgerIncrements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerFailure counts a fail-closed ledger outage.
func (m *Metrics) RecordLedgerFailure(ctx context.Context, resource, backend string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("resource", resource),
		attribute.String("backend", backend),
	)
	m.ledgerFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLifecycleEvent counts an inbound payment-processor event by outcome.
func (m *Metrics) RecordLifecycleEvent(ctx context.Context, provider, eventType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", provider),
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	)
	m.lifecycleEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Keys outside this set are dropped. tenant_id must never become a label.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":       {},
	"allowed":    {},
	"reason":     {},
	"resource":   {},
	"backend":    {},
	"provider":   {},
	"event_type": {},
	"outcome":    {},
	"route":      {},
	"status":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
