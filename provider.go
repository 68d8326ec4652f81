package multiprovider

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// selector yields the starting index for one logical call and digests one
// advancement per transport failure.
type selector interface {
	start(n int) int
	advance(n int)
}

// rotatingSelector persists its cursor across logical calls: the cursor is
// read once at call entry, advanced once per failing candidate, and left
// pointing at the endpoint that eventually succeeded.
type rotatingSelector struct {
	mu     sync.Mutex
	cursor int
}

func (s *rotatingSelector) start(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor % n
}

func (s *rotatingSelector) advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = (s.cursor + 1) % n
}

// fallbackSelector always starts from the first endpoint and carries no
// state.
type fallbackSelector struct{}

func (fallbackSelector) start(int) int { return 0 }
func (fallbackSelector) advance(int)   {}

func newSelector(policy Policy) selector {
	if policy == PolicyFallback {
		return fallbackSelector{}
	}
	return &rotatingSelector{}
}

// failoverGroup drives one logical call over the candidate sequence shared
// by every pool flavour. Candidates are tried strictly one at a time.
type failoverGroup struct {
	sel      selector
	logger   *zap.Logger
	size     int
	describe func(i int) (endpoint, provider string)
}

func (g *failoverGroup) run(ctx context.Context, try func(i int) error) error {
	if g.size == 0 {
		return ErrNoProvidersConfigured
	}

	start := g.sel.start(g.size)
	var errs []error
	for i := 0; i < g.size; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		idx := (start + i) % g.size
		err := try(idx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		g.sel.advance(g.size)
		endpoint, provider := g.describe(idx)
		g.logger.Warn("provider not responding",
			zap.String("provider", provider),
			zap.String("error", redactError(err, endpoint)),
		)
		errs = append(errs, err)
	}
	return newNoActiveProviderError(errs)
}

// Provider routes each logical JSON-RPC call across a pool of endpoint
// clients. It delivers exactly one successful response per call or fails
// with an aggregated error, never trying more candidates than the pool
// holds. Safe for concurrent use.
type Provider struct {
	clients []EndpointClient
	group   *failoverGroup
	logger  *zap.Logger
}

// NewProvider builds a rotating pool: the starting endpoint persists across
// calls, so consecutive calls keep using a healthy endpoint and skip the
// recently failing ones. Every endpoint is validated and probed during
// construction; a single bad address fails the whole pool.
func NewProvider(ctx context.Context, endpoints []string, options ...Option) (*Provider, error) {
	return newPool(ctx, endpoints, PolicyRotating, options)
}

// NewFallbackProvider builds a fallback pool: every call starts from the
// first endpoint regardless of earlier outcomes.
func NewFallbackProvider(ctx context.Context, endpoints []string, options ...Option) (*Provider, error) {
	return newPool(ctx, endpoints, PolicyFallback, options)
}

func newPool(ctx context.Context, endpoints []string, policy Policy, options []Option) (*Provider, error) {
	cfg := newConfig(options...)
	// One http.Client serves the entire pool unless the caller injected one.
	options = append([]Option{WithHTTPClient(cfg.client())}, options...)

	clients := make([]EndpointClient, 0, len(endpoints))
	for _, endpoint := range endpoints {
		client, err := NewHTTPClient(ctx, endpoint, options...)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return NewProviderFromClients(policy, clients, options...)
}

// NewProviderFromClients builds a pool over already-constructed clients,
// e.g. custom transports implementing EndpointClient.
func NewProviderFromClients(policy Policy, clients []EndpointClient, options ...Option) (*Provider, error) {
	cfg := newConfig(options...)
	p := &Provider{
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
func (p *Provider) Size() int {
	return len(p.clients)
}

// Call issues one logical JSON-RPC call, failing over on transport errors
// until a candidate answers or the pool is exhausted. The successful
// response passes through PoA cleanup exactly once, whichever endpoint
// produced it.
func (p *Provider) Call(ctx context.Context, method string, params ...any) (*Response, error) {
	var resp *Response
	err := p.group.run(ctx, func(i int) error {
		r, err := p.clients[i].Call(ctx, method, params...)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	sanitizePoAResponse(method, resp, p.logger)
	p.logger.Debug("request served", zap.String("method", method))
	return resp, nil
}

// BatchCall issues one logical batch call under the same policy. Only a
// whole-batch transport failure moves to the next candidate; per-element
// JSON-RPC errors are returned in place.
func (p *Provider) BatchCall(ctx context.Context, batch []BatchElem) error {
	err := p.group.run(ctx, func(i int) error {
		return p.clients[i].BatchCall(ctx, batch)
	})
	if err != nil {
		return err
	}

	for i := range batch {
		if batch[i].Response != nil {
			sanitizePoAResponse(batch[i].Method, batch[i].Response, p.logger)
		}
	}
	p.logger.Debug("batch request served", zap.Int("size", len(batch)))
	return nil
}
