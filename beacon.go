package multiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lidofinance/web3-multi-provider/internal/pathtemplate"
)

// BeaconClient talks to a single consensus-layer REST endpoint. Request
// paths are collapsed to identifier templates before they reach metric
// labels. Safe for concurrent use.
type BeaconClient struct {
	endpoint string
	base     *url.URL
	provider string
	session  *session
	logger   *zap.Logger
}

// NewBeaconClient validates the endpoint address and returns a client with
// layer label "cl". The network label defaults to "ethereum"; override with
// WithNetwork. No identity probe is issued: the Beacon API carries no chain
// id.
func NewBeaconClient(endpoint string, options ...Option) (*BeaconClient, error) {
	cfg := newConfig(options...)

	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	provider, err := NormalizeProvider(endpoint)
	if err != nil {
		return nil, err
	}

	network := cfg.network
	if network == "" {
		network = "ethereum"
	}

	c := &BeaconClient{
		endpoint: endpoint,
		base:     base,
		provider: provider,
		logger:   cfg.logger,
	}
	c.session = &session{
		http:   cfg.client(),
		sink:   cfg.metrics,
		logger: cfg.logger,
		labels: ProviderLabels{
			Network:  network,
			Layer:    LayerConsensus,
			ChainID:  "",
			Provider: provider,
		},
	}
	return c, nil
}

// Endpoint returns the raw configured address.
func (c *BeaconClient) Endpoint() string {
	return c.endpoint
}

// Provider returns the normalized address used in metric labels.
func (c *BeaconClient) Provider() string {
	return c.provider
}

// Get issues a GET against path and returns the raw JSON body.
func (c *BeaconClient) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post sends body as JSON against path and returns the raw JSON body.
func (c *BeaconClient) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &CallError{Provider: c.provider, Cause: err}
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

// do runs one instrumented exchange. Network errors and 5xx statuses are
// transport failures eligible for failover; 4xx statuses are caller misuse
// and propagate immediately.
func (c *BeaconClient) do(ctx context.Context, verb, path string, query url.Values, payload []byte) (json.RawMessage, error) {
	methodLabel, ok := pathtemplate.Template(path)
	if !ok {
		c.logger.Debug("unclassifiable request path", zap.String("provider", c.provider))
	}

	result := ResultFail
	errorCode := ""
	defer func() {
		c.session.sink.IncRequest(RequestLabels{
			ProviderLabels: c.session.labels,
			Method:         methodLabel,
			Result:         result,
			ErrorCode:      errorCode,
		})
	}()

	target := *c.base
	target.Path = strings.TrimSuffix(c.base.Path, "/") + path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, verb, target.String(), reader)
	if err != nil {
		return nil, &TransportError{Provider: c.provider, Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	raw, status, err := c.session.exchange(req, payload)
	if err != nil {
		return nil, &TransportError{Provider: c.provider, StatusCode: status, Cause: err}
	}
	switch {
	case status >= http.StatusInternalServerError:
		errorCode = strconv.Itoa(status)
		return nil, &TransportError{Provider: c.provider, StatusCode: status, Cause: fmt.Errorf("unexpected status code %d", status)}
	case status >= http.StatusBadRequest:
		errorCode = strconv.Itoa(status)
		return nil, &CallError{Provider: c.provider, StatusCode: status, Cause: fmt.Errorf("unexpected status code %d", status)}
	}

	result = ResultSuccess
	return raw, nil
}

// BeaconPool routes each logical Beacon API call across a pool of
// consensus-layer endpoints under the same failover policies as Provider.
type BeaconPool struct {
	clients []*BeaconClient
	group   *failoverGroup
	logger  *zap.Logger
}

// NewBeaconPool builds a rotating Beacon pool.
func NewBeaconPool(endpoints []string, options ...Option) (*BeaconPool, error) {
	return newBeaconPool(endpoints, PolicyRotating, options)
}

// NewFallbackBeaconPool builds a Beacon pool that always starts from the
// first endpoint.
func NewFallbackBeaconPool(endpoints []string, options ...Option) (*BeaconPool, error) {
	return newBeaconPool(endpoints, PolicyFallback, options)
}

func newBeaconPool(endpoints []string, policy Policy, options []Option) (*BeaconPool, error) {
	cfg := newConfig(options...)
	options = append([]Option{WithHTTPClient(cfg.client())}, options...)

	clients := make([]*BeaconClient, 0, len(endpoints))
	for _, endpoint := range endpoints {
		client, err := NewBeaconClient(endpoint, options...)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	p := &BeaconPool{
		clients: clients,
		logger:  cfg.logger,
	}
	p.group = &failoverGroup{
		sel:    newSelector(policy),
		logger: cfg.logger,
		size:   len(clients),
		describe: func(i int) (string, string) {
			return clients[i].Endpoint(), clients[i].Provider()
		},
	}
	return p, nil
}

// Size returns the number of endpoints in the pool.
func (p *BeaconPool) Size() int {
	return len(p.clients)
}

// Get issues one logical GET, failing over on transport errors.
func (p *BeaconPool) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	err := p.group.run(ctx, func(i int) error {
		raw, err := p.clients[i].Get(ctx, path, query)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("request served", zap.String("path", path))
	return out, nil
}

// Post issues one logical POST, failing over on transport errors.
func (p *BeaconPool) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	err := p.group.run(ctx, func(i int) error {
		raw, err := p.clients[i].Post(ctx, path, body)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("request served", zap.String("path", path))
	return out, nil
}
