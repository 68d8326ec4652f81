package multiprovider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerLabelNames = []string{"network", "layer", "chain_id", "provider"}

// MetricsCollector is the Prometheus implementation of MetricsSink. It is
// safe for concurrent use.
type MetricsCollector struct {
	requests        *prometheus.CounterVec
	responseSeconds *prometheus.HistogramVec
	requestPayload  *prometheus.HistogramVec
	responsePayload *prometheus.HistogramVec
	batchSize       *prometheus.HistogramVec
}

var _ MetricsSink = (*MetricsCollector)(nil)

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return NewNamespacedMetricsCollector(registry, "")
}

// NewNamespacedMetricsCollector creates a collector whose metric names carry
// the given namespace prefix.
func NewNamespacedMetricsCollector(registry prometheus.Registerer, namespace string) *MetricsCollector {
	return &MetricsCollector{
		requests: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_request",
				Help:      "Total number of RPC requests.",
			},
			append(append([]string{}, providerLabelNames...), "method", "result", "rpc_error_code"),
		),
		responseSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_rpc_response_seconds",
				Help:      "Distribution of RPC response times (in seconds).",
				Buckets:   prometheus.DefBuckets,
			},
			providerLabelNames,
		),
		requestPayload: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_rpc_request_payload_bytes",
				Help:      "Distribution of request payload sizes (bytes) of RPC calls.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			providerLabelNames,
		),
		responsePayload: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_rpc_response_payload_bytes",
				Help:      "Distribution of response payload sizes (bytes) of RPC calls.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			providerLabelNames,
		),
		batchSize: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_rpc_batch_size",
				Help:      "Distribution of how many JSON-RPC calls are bundled in each HTTP request.",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
			},
			providerLabelNames,
		),
	}
}

func providerLabelValues(l ProviderLabels) []string {
	return []string{l.Network, l.Layer, l.ChainID, l.Provider}
}

// IncRequest increments the request counter.
func (mc *MetricsCollector) IncRequest(l RequestLabels) {
	if mc == nil {
		return
	}
	values := append(providerLabelValues(l.ProviderLabels), l.Method, l.Result, l.ErrorCode)
	mc.requests.WithLabelValues(values...).Inc()
}

// ObserveResponseTime records one response-time observation.
func (mc *MetricsCollector) ObserveResponseTime(l ProviderLabels, d time.Duration) {
	if mc == nil {
		return
	}
	mc.responseSeconds.WithLabelValues(providerLabelValues(l)...).Observe(d.Seconds())
}

// ObserveRequestPayload records one request payload size observation.
func (mc *MetricsCollector) ObserveRequestPayload(l ProviderLabels, sizeBytes int) {
	if mc == nil {
		return
	}
	mc.requestPayload.WithLabelValues(providerLabelValues(l)...).Observe(float64(sizeBytes))
}

// ObserveResponsePayload records one response payload size observation.
func (mc *MetricsCollector) ObserveResponsePayload(l ProviderLabels, sizeBytes int) {
	if mc == nil {
		return
	}
	mc.responsePayload.WithLabelValues(providerLabelValues(l)...).Observe(float64(sizeBytes))
}

// ObserveBatchSize records the number of calls bundled in one batch.
func (mc *MetricsCollector) ObserveBatchSize(l ProviderLabels, size int) {
	if mc == nil {
		return
	}
	mc.batchSize.WithLabelValues(providerLabelValues(l)...).Observe(float64(size))
}

// nopSink drops every observation; the default before WithMetrics.
type nopSink struct{}

func (nopSink) IncRequest(RequestLabels)                          {}
func (nopSink) ObserveResponseTime(ProviderLabels, time.Duration) {}
func (nopSink) ObserveRequestPayload(ProviderLabels, int)         {}
func (nopSink) ObserveResponsePayload(ProviderLabels, int)        {}
func (nopSink) ObserveBatchSize(ProviderLabels, int)              {}

// NopMetrics returns a sink that drops every observation.
func NopMetrics() MetricsSink {
	return nopSink{}
}
