package telemetry

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const meterName = "papelpos/backend"

// Metrics holds the register counters. A nil *Metrics records nothing.
type Metrics struct {
	salesConfirmed      metric.Int64Counter
	salesAmount         metric.Int64Counter
	salesRejected       metric.Int64Counter
	persistenceFailures metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	confirmed, err := meter.Int64Counter("pos.sales.confirmed",
		metric.WithDescription("Sales closed at the register"))
	if err != nil {
		return nil, err
	}
	amount, err := meter.Int64Counter("pos.sales.amount",
		metric.WithDescription("Sum of closed sale totals"),
		metric.WithUnit("{COP}"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("pos.sales.rejected",
		metric.WithDescription("Confirmations refused before any mutation"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("pos.persistence.failures",
		metric.WithDescription("Writes to durable storage that failed"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		salesConfirmed:      confirmed,
		salesAmount:         amount,
		salesRejected:       rejected,
		persistenceFailures: failures,
	}, nil
}

func (m *Metrics) SaleConfirmed(ctx context.Context, method string, total int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("method", method))
	m.salesConfirmed.Add(ctx, 1, attrs)
	m.salesAmount.Add(ctx, total, attrs)
}

func (m *Metrics) SaleRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.salesRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) PersistenceFailed(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.persistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// Setup installs an OTLP/HTTP meter provider when endpoint is set and
// returns the register metrics with a shutdown func. Without an endpoint the
// global no-op provider is used.
func Setup(ctx context.Context, endpoint string, serviceName string) (*Metrics, func(context.Context) error, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		m, err := NewMetrics(otel.Meter(meterName))
		return m, func(context.Context) error { return nil }, err
	}

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	log.Printf("[telemetry] exporting metrics to %s", endpoint)

	m, err := NewMetrics(mp.Meter(meterName))
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	return m, mp.Shutdown, nil
}
