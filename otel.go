package multiprovider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics implements MetricsSink on the OpenTelemetry metric API, for
// deployments that export through OTLP instead of Prometheus scraping.
type OTelMetrics struct {
	requests        metric.Int64Counter
	responseSeconds metric.Float64Histogram
	requestPayload  metric.Int64Histogram
	responsePayload metric.Int64Histogram
	batchSize       metric.Int64Histogram
}

var _ MetricsSink = (*OTelMetrics)(nil)

// NewOTelMetrics creates the instruments on the supplied meter.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	if m.requests, err = meter.Int64Counter("rpc_request",
		metric.WithDescription("Total number of RPC requests."),
	); err != nil {
		return nil, err
	}
	if m.responseSeconds, err = meter.Float64Histogram("http_rpc_response_seconds",
		metric.WithDescription("Distribution of RPC response times."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.requestPayload, err = meter.Int64Histogram("http_rpc_request_payload_bytes",
		metric.WithDescription("Distribution of request payload sizes of RPC calls."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.responsePayload, err = meter.Int64Histogram("http_rpc_response_payload_bytes",
		metric.WithDescription("Distribution of response payload sizes of RPC calls."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.batchSize, err = meter.Int64Histogram("http_rpc_batch_size",
		metric.WithDescription("Distribution of how many JSON-RPC calls are bundled in each HTTP request."),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func otelProviderAttrs(l ProviderLabels) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("network", l.Network),
		attribute.String("layer", l.Layer),
		attribute.String("chain_id", l.ChainID),
		attribute.String("provider", l.Provider),
	}
}

// IncRequest increments the request counter.
func (m *OTelMetrics) IncRequest(l RequestLabels) {
	attrs := append(otelProviderAttrs(l.ProviderLabels),
		attribute.String("method", l.Method),
		attribute.String("result", l.Result),
		attribute.String("rpc_error_code", l.ErrorCode),
	)
	m.requests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// ObserveResponseTime records one response-time observation.
func (m *OTelMetrics) ObserveResponseTime(l ProviderLabels, d time.Duration) {
	m.responseSeconds.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(otelProviderAttrs(l)...))
}

// ObserveRequestPayload records one request payload size observation.
func (m *OTelMetrics) ObserveRequestPayload(l ProviderLabels, sizeBytes int) {
	m.requestPayload.Record(context.Background(), int64(sizeBytes),
		metric.WithAttributes(otelProviderAttrs(l)...))
}

// ObserveResponsePayload records one response payload size observation.
func (m *OTelMetrics) ObserveResponsePayload(l ProviderLabels, sizeBytes int) {
	m.responsePayload.Record(context.Background(), int64(sizeBytes),
		metric.WithAttributes(otelProviderAttrs(l)...))
}

// ObserveBatchSize records the number of calls bundled in one batch.
func (m *OTelMetrics) ObserveBatchSize(l ProviderLabels, size int) {
	m.batchSize.Record(context.Background(), int64(size),
		metric.WithAttributes(otelProviderAttrs(l)...))
}
