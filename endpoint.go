package multiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// EndpointClient performs request/response cycles against one node address.
// It carries no failover state; pooling and retries live in Provider.
type EndpointClient interface {
	// Call performs a single JSON-RPC request/response cycle.
	Call(ctx context.Context, method string, params ...any) (*Response, error)
	// BatchCall sends every element in one HTTP exchange and fills in the
	// per-element responses.
	BatchCall(ctx context.Context, batch []BatchElem) error
	// Endpoint returns the raw configured address.
	Endpoint() string
	// Provider returns the normalized address used in metric labels.
	Provider() string
}

// HTTPClient is the execution-layer JSON-RPC implementation of
// EndpointClient over net/http. It is safe for concurrent use.
type HTTPClient struct {
	endpoint string
	provider string
	chainID  string
	network  string
	session  *session
	logger   *zap.Logger
}

var _ EndpointClient = (*HTTPClient)(nil)

// NewHTTPClient validates the endpoint address, probes its chain identity
// and returns a fully initialized client. Construction is two-phase on
// purpose: a client is only published once its labels are final, so no call
// ever observes a half-initialized identity. WithChainID skips the probe.
func NewHTTPClient(ctx context.Context, endpoint string, options ...Option) (*HTTPClient, error) {
	cfg := newConfig(options...)

	if _, err := parseEndpoint(endpoint); err != nil {
		return nil, err
	}
	provider, err := NormalizeProvider(endpoint)
	if err != nil {
		return nil, err
	}

	c := &HTTPClient{
		endpoint: endpoint,
		provider: provider,
		chainID:  "unknown",
		network:  "unknown",
		logger:   cfg.logger,
	}
	c.session = &session{
		http:   cfg.client(),
		sink:   cfg.metrics,
		logger: cfg.logger,
		labels: ProviderLabels{
			Network:  c.network,
			Layer:    LayerExecution,
			ChainID:  c.chainID,
			Provider: provider,
		},
	}

	if cfg.chainID != "" {
		c.chainID = cfg.chainID
	} else {
		chainID, err := c.fetchChainID(ctx)
		if err != nil {
			return nil, &InitializationError{Provider: provider, Cause: err}
		}
		c.chainID = strconv.FormatUint(chainID, 10)
	}
	c.network = cfg.networkName(c.chainID)
	c.session.labels.ChainID = c.chainID
	c.session.labels.Network = c.network

	return c, nil
}

// Endpoint returns the raw configured address.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Provider returns the normalized address used in metric labels.
func (c *HTTPClient) Provider() string {
	return c.provider
}

// ChainID returns the chain id label resolved during construction.
func (c *HTTPClient) ChainID() string {
	return c.chainID
}

// Network returns the network label resolved during construction.
func (c *HTTPClient) Network() string {
	return c.network
}

// Call performs one JSON-RPC request/response cycle. A response carrying a
// JSON-RPC error member is returned as-is: only transport failures surface
// as errors.
func (c *HTTPClient) Call(ctx context.Context, method string, params ...any) (*Response, error) {
	body, _, err := encodeRequest(method, params)
	if err != nil {
		return nil, &CallError{Provider: c.provider, Cause: err}
	}

	result := ResultFail
	errorCode := ""
	defer func() {
		c.session.sink.IncRequest(RequestLabels{
			ProviderLabels: c.session.labels,
			Method:         method,
			Result:         result,
			ErrorCode:      errorCode,
		})
	}()

	raw, status, err := c.post(ctx, body)
	if err != nil {
		return nil, &TransportError{Provider: c.provider, StatusCode: status, Cause: err}
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, &TransportError{Provider: c.provider, StatusCode: status, Cause: err}
	}

	if resp.Error != nil {
		errorCode = strconv.Itoa(resp.Error.Code)
	} else {
		result = ResultSuccess
	}
	return resp, nil
}

// BatchCall sends every element in a single HTTP exchange. Only a
// whole-batch transport failure surfaces as an error; per-element JSON-RPC
// errors end up in the element responses. The result counter is incremented
// once per contained method.
func (c *HTTPClient) BatchCall(ctx context.Context, batch []BatchElem) error {
	if len(batch) == 0 {
		return nil
	}

	body, ids, err := encodeBatch(batch)
	if err != nil {
		return &CallError{Provider: c.provider, Cause: err}
	}

	results := make([]string, len(batch))
	errorCodes := make([]string, len(batch))
	for i := range results {
		results[i] = ResultFail
	}
	defer func() {
		c.session.sink.ObserveBatchSize(c.session.labels, len(batch))
		for i := range batch {
			c.session.sink.IncRequest(RequestLabels{
				ProviderLabels: c.session.labels,
				Method:         batch[i].Method,
				Result:         results[i],
				ErrorCode:      errorCodes[i],
			})
		}
	}()

	raw, status, err := c.post(ctx, body)
	if err != nil {
		return &TransportError{Provider: c.provider, StatusCode: status, Cause: err}
	}
	if err := decodeBatchResponse(raw, ids, batch); err != nil {
		return &TransportError{Provider: c.provider, StatusCode: status, Cause: err}
	}

	for i := range batch {
		if batch[i].Response.Error != nil {
			errorCodes[i] = strconv.Itoa(batch[i].Response.Error.Code)
		} else {
			results[i] = ResultSuccess
		}
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, status, err := c.session.exchange(req, body)
	if err != nil {
		return nil, status, err
	}
	if status >= http.StatusBadRequest {
		return nil, status, fmt.Errorf("unexpected status code %d", status)
	}
	return raw, status, nil
}

func (c *HTTPClient) fetchChainID(ctx context.Context) (uint64, error) {
	resp, err := c.Call(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error
	}
	var hexID string
	if err := json.Unmarshal(resp.Result, &hexID); err != nil {
		return 0, fmt.Errorf("unexpected eth_chainId result: %w", err)
	}
	return strconv.ParseUint(strings.TrimPrefix(hexID, "0x"), 16, 64)
}
