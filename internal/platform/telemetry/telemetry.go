package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ShutdownFunc releases telemetry resources.
type ShutdownFunc func(ctx context.Context) error

// Setup initializes OpenTelemetry with a Prometheus exporter.
// Returns a shutdown function that must be called on exit.
func Setup(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Metrics holds all OTel instruments for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequestsTotal      otelmetric.Int64Counter
	httpRequestDuration    otelmetric.Float64Histogram
	authValidationsTotal   otelmetric.Int64Counter
	contentRejectionsTotal otelmetric.Int64Counter
	requestTimeoutsTotal   otelmetric.Int64Counter
	corsRejectionsTotal    otelmetric.Int64Counter
	tokensIssuedTotal      otelmetric.Int64Counter
}

// NewMetrics creates and registers all service metrics.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("userapi")
	m := &Metrics{}
	var err error

	latencyBuckets := otelmetric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
	)

	if m.httpRequestsTotal, err = meter.Int64Counter("userapi_http_requests_total",
		otelmetric.WithDescription("Total HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}
	if m.httpRequestDuration, err = meter.Float64Histogram("userapi_http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request duration"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}
	if m.authValidationsTotal, err = meter.Int64Counter("userapi_auth_validations_total",
		otelmetric.WithDescription("Total bearer token validations")); err != nil {
		return nil, fmt.Errorf("creating auth_validations_total: %w", err)
	}
	if m.contentRejectionsTotal, err = meter.Int64Counter("userapi_content_rejections_total",
		otelmetric.WithDescription("Requests rejected by the forbidden pattern policy")); err != nil {
		return nil, fmt.Errorf("creating content_rejections_total: %w", err)
	}
	if m.requestTimeoutsTotal, err = meter.Int64Counter("userapi_request_timeouts_total",
		otelmetric.WithDescription("Requests abandoned at the deadline")); err != nil {
		return nil, fmt.Errorf("creating request_timeouts_total: %w", err)
	}
	if m.corsRejectionsTotal, err = meter.Int64Counter("userapi_cors_rejections_total",
		otelmetric.WithDescription("Requests rejected for a disallowed origin")); err != nil {
		return nil, fmt.Errorf("creating cors_rejections_total: %w", err)
	}
	if m.tokensIssuedTotal, err = meter.Int64Counter("userapi_tokens_issued_total",
		otelmetric.WithDescription("Access tokens issued at login")); err != nil {
		return nil, fmt.Errorf("creating tokens_issued_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric. path should be a route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationSec float64) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationSec, attrs)
}

// RecordAuthValidation records a bearer token validation result.
func (m *Metrics) RecordAuthValidation(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.authValidationsTotal.Add(ctx, 1, otelmetric.WithAttributes(resultAttr(result)))
}

// RecordContentRejection records a forbidden pattern hit; location is
// "query" or "body".
func (m *Metrics) RecordContentRejection(ctx context.Context, location string) {
	if m == nil {
		return
	}
	m.contentRejectionsTotal.Add(ctx, 1, otelmetric.WithAttributes(locationAttr(location)))
}

// RecordTimeout records a request that hit the pipeline deadline.
func (m *Metrics) RecordTimeout(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.requestTimeoutsTotal.Add(ctx, 1, otelmetric.WithAttributes(pathAttr(path)))
}

// RecordCORSRejection records a request from an origin outside the allow-list.
func (m *Metrics) RecordCORSRejection(ctx context.Context) {
	if m == nil {
		return
	}
	m.corsRejectionsTotal.Add(ctx, 1)
}

// RecordTokenIssued records a login outcome that reached token signing.
func (m *Metrics) RecordTokenIssued(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.tokensIssuedTotal.Add(ctx, 1, otelmetric.WithAttributes(resultAttr(result)))
}
