package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/kvcache"
	"github.com/cropseq/genedit/internal/metrics"
	"github.com/cropseq/genedit/internal/oracle"
	"github.com/cropseq/genedit/internal/registry"
	"github.com/cropseq/genedit/internal/snpindex"
)

// initConfig loads ~/.genedit.yaml and GENEDIT_* environment variables.
// A missing config file is fine; flags fall back to defaults.
func initConfig() {
	viper.SetConfigName(".genedit")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("genedit")
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("oracle.efficiency_url", "")
	viper.SetDefault("oracle.sequence_url", "")
	viper.SetDefault("oracle.timeout", "10s")
	viper.SetDefault("cache.index_ttl", kvcache.DefaultIndexTTL.String())
	viper.SetDefault("cache.region_ttl", kvcache.DefaultRegionTTL.String())

	_ = viper.ReadInConfig()
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newGateway builds the external cache gateway, or nil when addr is empty
// or "none". A nil gateway always misses, so every command works without
// a cache server.
func newGateway(addr string, logger *zap.Logger) *kvcache.Gateway {
	if addr == "" || addr == "none" {
		return nil
	}
	g := kvcache.New(kvcache.Config{
		Addr:      addr,
		Password:  viper.GetString("redis.password"),
		DB:        viper.GetInt("redis.db"),
		IndexTTL:  viper.GetDuration("cache.index_ttl"),
		RegionTTL: viper.GetDuration("cache.region_ttl"),
	})
	g.SetLogger(logger)
	return g
}

// newCatalogService discovers catalogs under dataDir and wires them to the
// cache gateway, with collectors registered on the default Prometheus
// registry.
func newCatalogService(dataDir, redisAddr string, logger *zap.Logger) (*registry.Registry, *snpindex.Service, *metrics.Metrics, error) {
	reg, err := registry.Discover(dataDir, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("discovering catalogs in %s: %w", dataDir, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	cache := newGateway(redisAddr, logger)
	cache.SetMetrics(m)

	return reg, snpindex.NewService(reg, cache, logger), m, nil
}

// oracleKind maps an oracle URL to its backing implementation: remote when
// configured, heuristic otherwise.
func oracleKind(url string) oracle.Kind {
	if url != "" {
		return oracle.KindRemote
	}
	return oracle.KindHeuristic
}

func oracleTimeout() time.Duration {
	d := viper.GetDuration("oracle.timeout")
	if d <= 0 {
		d = 10 * time.Second
	}
	return d
}
