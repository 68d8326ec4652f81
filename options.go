package multiprovider

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Chain ids shipped with the default configuration; override with
// WithChainNames.
var defaultChainNames = map[uint64]string{
	1:        "ethereum",
	10:       "optimism",
	100:      "gnosis",
	137:      "polygon",
	10200:    "chiado",
	17000:    "holesky",
	42161:    "arbitrum",
	560048:   "hoodi",
	11155111: "sepolia",
}

type config struct {
	httpClient *http.Client
	timeout    time.Duration
	metrics    MetricsSink
	logger     *zap.Logger
	network    string
	chainID    string
	chainNames map[uint64]string
}

func newConfig(options ...Option) *config {
	cfg := &config{
		timeout:    30 * time.Second,
		metrics:    nopSink{},
		logger:     zap.NewNop(),
		chainNames: defaultChainNames,
	}
	for _, option := range options {
		option(cfg)
	}
	return cfg
}

// client returns the injected *http.Client or a fresh one bounded by the
// configured timeout.
func (c *config) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: c.timeout}
}

func (c *config) networkName(chainID string) string {
	if c.network != "" {
		return c.network
	}
	id, err := strconv.ParseUint(chainID, 10, 64)
	if err == nil {
		if name, ok := c.chainNames[id]; ok {
			return name
		}
	}
	return "unknown"
}

// WithHTTPClient shares a custom *http.Client across every endpoint client
// in the pool. Connection pooling and timeouts live here.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithTimeout bounds the default *http.Client. Ignored when WithHTTPClient
// is supplied.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMetrics sets the metrics sink. Defaults to a no-op sink.
func WithMetrics(sink MetricsSink) Option {
	return func(c *config) {
		if sink != nil {
			c.metrics = sink
		}
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNetwork overrides the network label instead of resolving it from the
// chain id table.
func WithNetwork(network string) Option {
	return func(c *config) {
		c.network = network
	}
}

// WithChainID pins the chain identity statically and skips the eth_chainId
// probe during construction.
func WithChainID(chainID uint64) Option {
	return func(c *config) {
		c.chainID = strconv.FormatUint(chainID, 10)
	}
}

// WithChainNames replaces the chain id to network name table used for the
// network label.
func WithChainNames(names map[uint64]string) Option {
	return func(c *config) {
		if names != nil {
			c.chainNames = names
		}
	}
}
