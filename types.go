package multiprovider

import "time"

// Policy selects the candidate ordering strategy for a pool.
type Policy int

const (
	// PolicyRotating starts each logical call at a shared cursor that
	// advances past failing endpoints and persists across calls.
	PolicyRotating Policy = iota
	// PolicyFallback walks the pool in its original order on every call.
	PolicyFallback
)

// Result label values for the request counter.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// Layer label values.
const (
	LayerExecution = "el"
	LayerConsensus = "cl"
)

// ProviderLabels identifies one endpoint in metric label values. Provider is
// the normalized address, never the raw URL.
type ProviderLabels struct {
	Network  string
	Layer    string
	ChainID  string
	Provider string
}

// RequestLabels extends ProviderLabels with the per-call outcome dimensions
// of the request counter. Labels are computed fresh per call and never
// persisted.
type RequestLabels struct {
	ProviderLabels
	// Method is the JSON-RPC method name or the REST path template; empty
	// when the path was unclassifiable.
	Method string
	// Result is ResultSuccess or ResultFail.
	Result string
	// ErrorCode is the JSON-RPC error code or the HTTP status, empty when
	// the call succeeded.
	ErrorCode string
}

// MetricsSink receives the observations produced for every call. All methods
// must be safe for concurrent use and must not block.
type MetricsSink interface {
	IncRequest(labels RequestLabels)
	ObserveResponseTime(labels ProviderLabels, d time.Duration)
	ObserveRequestPayload(labels ProviderLabels, sizeBytes int)
	ObserveResponsePayload(labels ProviderLabels, sizeBytes int)
	ObserveBatchSize(labels ProviderLabels, size int)
}

// Option represents a configuration option for pools and endpoint clients.
type Option func(*config)
