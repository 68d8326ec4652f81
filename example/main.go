// Full wiring example: endpoints and policy come from a YAML file via
// viper, metrics are exposed on /metrics from a dedicated registry, and a
// zap logger captures failover warnings.
//
// config.yaml:
//
//	endpoints:
//	  - https://mainnet.example-rpc.io/v1/key
//	  - http://127.0.0.1:8545
//	policy: rotating
//	namespace: myapp
//	listen: :9090
package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	multiprovider "github.com/lidofinance/web3-multi-provider"
)

type settings struct {
	Endpoints []string `mapstructure:"endpoints"`
	Policy    string   `mapstructure:"policy"`
	Namespace string   `mapstructure:"namespace"`
	Listen    string   `mapstructure:"listen"`
}

func loadSettings(path string) (*settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("policy", "rotating")
	v.SetDefault("listen", ":9090")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	if len(s.Endpoints) == 0 {
		return nil, errors.New("no endpoints configured")
	}
	return &s, nil
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting", zap.String("library", multiprovider.GetVersion()))

	path := "config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := loadSettings(path)
	if err != nil {
		logger.Fatal("failed to load settings", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	collector := multiprovider.NewNamespacedMetricsCollector(registry, cfg.Namespace)

	ctx := context.Background()
	options := []multiprovider.Option{
		multiprovider.WithMetrics(collector),
		multiprovider.WithLogger(logger),
	}

	var provider *multiprovider.Provider
	if cfg.Policy == "fallback" {
		provider, err = multiprovider.NewFallbackProvider(ctx, cfg.Endpoints, options...)
	} else {
		provider, err = multiprovider.NewProvider(ctx, cfg.Endpoints, options...)
	}
	if err != nil {
		logger.Fatal("failed to build provider pool", zap.Error(err))
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
			logger.Fatal("metrics server stopped", zap.Error(err))
		}
	}()

	resp, err := provider.Call(ctx, "eth_getBlockByNumber", "latest", false)
	if err != nil {
		logger.Fatal("call failed on every endpoint", zap.Error(err))
	}
	logger.Info("latest block fetched", zap.Int("result_bytes", len(resp.Result)))
}
