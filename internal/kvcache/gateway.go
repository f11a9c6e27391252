// Package kvcache provides the shared external cache gateway for variant
// indexes and range-query results.
//
// Every operation is best-effort: a cache that is down, slow, or erroring
// behaves exactly like a cache miss. Callers must treat any returned error
// as "not cached" and fall back to the in-memory table; correctness never
// depends on cache availability, only latency does.
package kvcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/bim"
	"github.com/cropseq/genedit/internal/metrics"
)

// Sentinel errors. ErrMiss means the key is absent; ErrUnavailable means
// the cache could not be reached or errored. Callers treat both as a miss.
var (
	ErrMiss        = errors.New("cache miss")
	ErrUnavailable = errors.New("cache unavailable")
)

// Default TTLs, matching the catalog index lifecycle: the full point map is
// long-lived, range results are query-shaped and cached opportunistically.
const (
	DefaultIndexTTL  = 7 * 24 * time.Hour
	DefaultRegionTTL = time.Hour
)

// hashBatchSize bounds how many hash fields go into one pipelined HSET.
const hashBatchSize = 10000

// Metadata describes a cached catalog index.
type Metadata struct {
	TotalCount int
	SourcePath string
	SourceSize int64
}

// Config holds gateway connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout and OpTimeout keep request latency bounded when the
	// cache is unreachable; failures are never retried inline.
	DialTimeout time.Duration
	OpTimeout   time.Duration

	IndexTTL  time.Duration
	RegionTTL time.Duration
}

// Gateway is a thin client over the shared key-value cache. A nil *Gateway
// is valid and behaves as a cache that always misses.
type Gateway struct {
	client    *redis.Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
	indexTTL  time.Duration
	regionTTL time.Duration
}

// New creates a gateway from config. The connection is verified lazily;
// an unreachable cache is not an error here.
func New(cfg Config) *Gateway {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	if cfg.IndexTTL == 0 {
		cfg.IndexTTL = DefaultIndexTTL
	}
	if cfg.RegionTTL == 0 {
		cfg.RegionTTL = DefaultRegionTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
		MaxRetries:   -1, // fail fast, degrade to miss
	})

	return &Gateway{
		client:    client,
		logger:    zap.NewNop(),
		indexTTL:  cfg.IndexTTL,
		regionTTL: cfg.RegionTTL,
	}
}

// SetLogger sets the logger for degraded-mode warnings.
func (g *Gateway) SetLogger(l *zap.Logger) {
	if g != nil {
		g.logger = l
	}
}

// SetMetrics attaches instrumentation counters.
func (g *Gateway) SetMetrics(m *metrics.Metrics) {
	if g != nil {
		g.metrics = m
	}
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	return g.client.Close()
}

// Available reports whether the cache currently answers a ping.
func (g *Gateway) Available(ctx context.Context) bool {
	if g == nil {
		return false
	}
	return g.client.Ping(ctx).Err() == nil
}

// Key layout, shared with the warm/invalidate tooling:
//
//	snp:index:<ds>                      hash field "<chrom>:<pos>" -> record JSON
//	snp:meta:<ds>                       hash: total_count, source_path, source_size
//	snp:region:<ds>:<chrom>:<a>:<b>     JSON array of records
func indexKey(name string) string { return "snp:index:" + name }
func metaKey(name string) string  { return "snp:meta:" + name }

func regionKey(name, chrom string, start, end int64) string {
	return fmt.Sprintf("snp:region:%s:%s:%d:%d", name, chrom, start, end)
}

func invalidatePattern(name string) string {
	return fmt.Sprintf("snp:*:%s*", name)
}

// IndexCached reports whether a full point index is cached for the catalog.
func (g *Gateway) IndexCached(ctx context.Context, name string) bool {
	if g == nil {
		return false
	}
	n, err := g.client.Exists(ctx, indexKey(name)).Result()
	if err != nil {
		g.degraded("index_exists", err)
		return false
	}
	return n > 0
}

// CacheIndex writes the full point map for a catalog as one logical unit:
// the index hash in batched pipeline writes, plus a metadata record, both
// with the long index TTL.
func (g *Gateway) CacheIndex(ctx context.Context, name string, recs []bim.Record, meta Metadata) error {
	if g == nil {
		return ErrUnavailable
	}

	pipe := g.client.Pipeline()

	pipe.HSet(ctx, metaKey(name), map[string]interface{}{
		"total_count": meta.TotalCount,
		"source_path": meta.SourcePath,
		"source_size": meta.SourceSize,
	})
	pipe.Expire(ctx, metaKey(name), g.indexTTL)

	batch := make(map[string]interface{}, hashBatchSize)
	for i := range recs {
		payload, err := json.Marshal(&recs[i])
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", recs[i].ID, err)
		}
		batch[recs[i].Key().String()] = payload
		if len(batch) == hashBatchSize {
			pipe.HSet(ctx, indexKey(name), batch)
			batch = make(map[string]interface{}, hashBatchSize)
		}
	}
	if len(batch) > 0 {
		pipe.HSet(ctx, indexKey(name), batch)
	}
	pipe.Expire(ctx, indexKey(name), g.indexTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		g.degraded("cache_index", err)
		return ErrUnavailable
	}

	g.logger.Info("cached catalog index",
		zap.String("catalog", name),
		zap.Int("entries", len(recs)))
	return nil
}

// Entry reads one record from the cached point index.
func (g *Gateway) Entry(ctx context.Context, name, chrom string, pos int64) (bim.Record, error) {
	var rec bim.Record
	if g == nil {
		return rec, ErrUnavailable
	}

	field := bim.Key{Chromosome: chrom, Position: pos}.String()
	payload, err := g.client.HGet(ctx, indexKey(name), field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			g.count("entry", false)
			return rec, ErrMiss
		}
		g.degraded("entry", err)
		return rec, ErrUnavailable
	}

	if err := json.Unmarshal(payload, &rec); err != nil {
		// A corrupt entry is indistinguishable from a miss to callers.
		g.degraded("entry", err)
		return rec, ErrUnavailable
	}
	g.count("entry", true)
	return rec, nil
}

// Region reads a cached range-query result.
func (g *Gateway) Region(ctx context.Context, name, chrom string, start, end int64) ([]bim.Record, error) {
	if g == nil {
		return nil, ErrUnavailable
	}

	payload, err := g.client.Get(ctx, regionKey(name, chrom, start, end)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			g.count("region", false)
			return nil, ErrMiss
		}
		g.degraded("region", err)
		return nil, ErrUnavailable
	}

	var recs []bim.Record
	if err := json.Unmarshal(payload, &recs); err != nil {
		g.degraded("region", err)
		return nil, ErrUnavailable
	}
	g.count("region", true)
	return recs, nil
}

// CacheRegion writes a range-query result with the short region TTL.
func (g *Gateway) CacheRegion(ctx context.Context, name, chrom string, start, end int64, recs []bim.Record) error {
	if g == nil {
		return ErrUnavailable
	}

	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal region: %w", err)
	}
	if err := g.client.Set(ctx, regionKey(name, chrom, start, end), payload, g.regionTTL).Err(); err != nil {
		g.degraded("cache_region", err)
		return ErrUnavailable
	}
	return nil
}

// CatalogMetadata reads the cached metadata record for a catalog.
func (g *Gateway) CatalogMetadata(ctx context.Context, name string) (Metadata, error) {
	var meta Metadata
	if g == nil {
		return meta, ErrUnavailable
	}

	fields, err := g.client.HGetAll(ctx, metaKey(name)).Result()
	if err != nil {
		g.degraded("metadata", err)
		return meta, ErrUnavailable
	}
	if len(fields) == 0 {
		return meta, ErrMiss
	}

	fmt.Sscanf(fields["total_count"], "%d", &meta.TotalCount)
	fmt.Sscanf(fields["source_size"], "%d", &meta.SourceSize)
	meta.SourcePath = fields["source_path"]
	return meta, nil
}

// Invalidate deletes every cache key belonging to a catalog.
func (g *Gateway) Invalidate(ctx context.Context, name string) error {
	if g == nil {
		return ErrUnavailable
	}

	iter := g.client.Scan(ctx, 0, invalidatePattern(name), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		g.degraded("invalidate", err)
		return ErrUnavailable
	}

	if len(keys) > 0 {
		if err := g.client.Del(ctx, keys...).Err(); err != nil {
			g.degraded("invalidate", err)
			return ErrUnavailable
		}
	}

	g.logger.Info("invalidated catalog cache",
		zap.String("catalog", name),
		zap.Int("keys", len(keys)))
	return nil
}

// Stats describes the cache server state, for diagnostics output.
type Stats struct {
	Connected bool
	Keys      int64
}

// ServerStats reports whether the cache is reachable and how many keys it
// currently holds.
func (g *Gateway) ServerStats(ctx context.Context) Stats {
	if g == nil {
		return Stats{}
	}
	n, err := g.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}
	}
	return Stats{Connected: true, Keys: n}
}

// degraded logs a cache error that was absorbed as a miss.
func (g *Gateway) degraded(op string, err error) {
	g.logger.Warn("cache operation degraded to miss",
		zap.String("op", op),
		zap.Error(err))
	if g.metrics != nil {
		g.metrics.CacheErrors.WithLabelValues(op).Inc()
	}
}

func (g *Gateway) count(op string, hit bool) {
	if g.metrics == nil {
		return
	}
	if hit {
		g.metrics.CacheHits.WithLabelValues(op).Inc()
	} else {
		g.metrics.CacheMisses.WithLabelValues(op).Inc()
	}
}
