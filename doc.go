// Package multiprovider gives callers reliable access to a pool of
// equivalent blockchain node endpoints:
//
//   - Execution-layer JSON-RPC pools (Provider) and consensus-layer
//     Beacon REST pools (BeaconPool)
//   - Two failover policies: rotating (starting position persists across
//     calls) and fallback (always starts from the first endpoint)
//   - Per-attempt instrumentation: request/response payload sizes, response
//     times, batch sizes and a result counter, emitted exactly once per call
//   - Bounded-cardinality metric labels: provider addresses are collapsed to
//     their registrable domain, Beacon paths to identifier templates
//   - PoA extraData cleanup on block responses
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single Provider instance
//   - Extensibility via the EndpointClient interface and pluggable
//     MetricsSink implementations (Prometheus and OpenTelemetry included)
//
// Typical usage:
//
//	provider, err := multiprovider.NewProvider(ctx,
//	    []string{"https://mainnet.example-rpc.io/v1/key", "http://127.0.0.1:8545"},
//	    multiprovider.WithMetrics(multiprovider.NewMetricsCollector()),
//	    multiprovider.WithLogger(logger),
//	)
//	if err != nil {
//	    // a bad scheme or an unreachable endpoint fails the whole pool
//	}
//	resp, err := provider.Call(ctx, "eth_getBlockByNumber", "latest", false)
//
// Retries are bounded strictly by pool size: every endpoint is tried at most
// once per logical call, and there is no backoff layer. Timeouts belong to
// the injected *http.Client.
package multiprovider
