package snpindex

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cropseq/genedit/internal/bim"
	"github.com/cropseq/genedit/internal/duckstore"
	"github.com/cropseq/genedit/internal/kvcache"
	"github.com/cropseq/genedit/internal/registry"
)

// Service serves variant queries across catalogs. It builds indexes on
// first use (idempotently, guarded per catalog), keeps a single current
// catalog behind a single-writer/many-readers lock, and reads through the
// external cache, falling back to the in-memory index on any cache error.
type Service struct {
	reg    *registry.Registry
	cache  *kvcache.Gateway
	logger *zap.Logger

	mu      sync.RWMutex // guards current and indexes
	current string
	indexes map[string]*Index

	buildMu sync.Mutex // guards builds
	builds  map[string]*sync.Mutex
}

// NewService creates a query service. The gateway may be nil, in which case
// every read is served from memory.
func NewService(reg *registry.Registry, cache *kvcache.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reg:     reg,
		cache:   cache,
		logger:  logger,
		indexes: make(map[string]*Index),
		builds:  make(map[string]*sync.Mutex),
	}
}

// Current returns the name of the currently selected catalog, or "".
func (s *Service) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Use resolves a catalog, ensures its index is built, and makes it the
// current catalog. The swap is synchronous: readers either see the old
// catalog or the fully built new one, never a half-swapped state.
func (s *Service) Use(ctx context.Context, name string) error {
	if _, err := s.reg.Get(name); err != nil {
		return err
	}
	name = strings.ToLower(name)

	if _, err := s.ensureBuilt(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = name
	s.mu.Unlock()
	return nil
}

// Loaded reports whether a catalog's index has been built.
func (s *Service) Loaded(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[strings.ToLower(name)]
	return ok
}

// IndexSize returns the number of distinct indexed positions for a catalog,
// 0 when it has not been built.
func (s *Service) IndexSize(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexes[strings.ToLower(name)].Len()
}

// ensureBuilt returns the index for a catalog, building it on first use.
// Concurrent first requests for the same catalog serialize on a per-name
// lock so the work happens once.
func (s *Service) ensureBuilt(ctx context.Context, name string) (*Index, error) {
	s.mu.RLock()
	ix, ok := s.indexes[name]
	s.mu.RUnlock()
	if ok {
		return ix, nil
	}

	lock := s.buildLock(name)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have finished the build while we waited.
	s.mu.RLock()
	ix, ok = s.indexes[name]
	s.mu.RUnlock()
	if ok {
		return ix, nil
	}

	desc, err := s.reg.Get(name)
	if err != nil {
		return nil, err
	}

	table, err := s.loadTable(desc)
	if err != nil {
		return nil, err
	}

	ix = Build(table)
	s.logger.Info("built catalog index",
		zap.String("catalog", name),
		zap.Int("rows", ix.TableLen()),
		zap.Int("positions", ix.Len()))

	// Push the full point map to the shared cache unless a fresh copy is
	// already there. Failure is not an error: the in-memory index is the
	// source of truth.
	if s.cache != nil && !s.cache.IndexCached(ctx, name) {
		meta := kvcache.Metadata{TotalCount: ix.TableLen(), SourcePath: desc.FilePath}
		if fp, err := duckstore.StatFile(desc.FilePath); err == nil {
			meta.SourceSize = fp.Size
		}
		if err := s.cache.CacheIndex(ctx, name, ix.Records(), meta); err != nil {
			s.logger.Warn("index not cached", zap.String("catalog", name), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.indexes[name] = ix
	s.mu.Unlock()
	return ix, nil
}

// loadTable loads a catalog table, preferring a fresh DuckDB conversion
// sitting next to the source file.
func (s *Service) loadTable(desc *registry.Descriptor) (*bim.Table, error) {
	dbPath := conversionPath(desc.FilePath)
	if duckstore.Fresh(dbPath, desc.FilePath) {
		table, err := duckstore.Load(dbPath)
		if err == nil {
			s.logger.Info("loaded converted catalog", zap.String("path", dbPath))
			return table, nil
		}
		s.logger.Warn("converted catalog unreadable, falling back to source",
			zap.String("path", dbPath), zap.Error(err))
	}
	return bim.Load(desc.FilePath)
}

// conversionPath maps maize.bim (or maize.bim.gz) to maize.duckdb.
func conversionPath(bimPath string) string {
	p := strings.TrimSuffix(bimPath, ".gz")
	p = strings.TrimSuffix(p, ".bim")
	return p + ".duckdb"
}

func (s *Service) buildLock(name string) *sync.Mutex {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	lock, ok := s.builds[name]
	if !ok {
		lock = &sync.Mutex{}
		s.builds[name] = lock
	}
	return lock
}

// Point returns the record at (chromosome, position) in the named catalog.
// The cached point map is consulted first; any cache error falls back to
// the in-memory index. An unbuilt catalog yields a miss, never an error.
func (s *Service) Point(ctx context.Context, name, chrom string, pos int64) (bim.Record, bool) {
	name = strings.ToLower(name)

	if rec, err := s.cache.Entry(ctx, name, chrom, pos); err == nil {
		return rec, true
	} else if errors.Is(err, kvcache.ErrMiss) && s.cache.IndexCached(ctx, name) {
		// The full point map is cached and this position is absent from it.
		return bim.Record{}, false
	}

	s.mu.RLock()
	ix := s.indexes[name]
	s.mu.RUnlock()
	return ix.Point(chrom, pos)
}

// Range returns all records on chrom with start <= position <= end.
// Range results are query-shaped, so they are cached opportunistically:
// cache first, scan on miss, then backfill with the short region TTL.
// An unbuilt catalog yields empty results.
func (s *Service) Range(ctx context.Context, name, chrom string, start, end int64) ([]bim.Record, error) {
	if start >= end {
		return nil, ErrInvalidRange
	}
	name = strings.ToLower(name)

	if recs, err := s.cache.Region(ctx, name, chrom, start, end); err == nil {
		return recs, nil
	}

	s.mu.RLock()
	ix := s.indexes[name]
	s.mu.RUnlock()

	recs, err := ix.Range(chrom, start, end)
	if err != nil {
		return nil, err
	}

	if ix != nil {
		_ = s.cache.CacheRegion(ctx, name, chrom, start, end, recs)
	}
	return recs, nil
}

// Near returns all records within window positions of pos.
func (s *Service) Near(ctx context.Context, name, chrom string, pos, window int64) ([]bim.Record, error) {
	return s.Range(ctx, name, chrom, pos-window, pos+window)
}

// Invalidate removes all cached entries for a catalog and drops its
// in-memory index, forcing a rebuild on next use.
func (s *Service) Invalidate(ctx context.Context, name string) error {
	name = strings.ToLower(name)

	s.mu.Lock()
	delete(s.indexes, name)
	s.mu.Unlock()

	if err := s.cache.Invalidate(ctx, name); err != nil && !errors.Is(err, kvcache.ErrUnavailable) {
		return err
	}
	return nil
}

// Warm eagerly builds indexes (and populates the cache) for the named
// catalogs, at most parallel at a time.
func (s *Service) Warm(ctx context.Context, names []string, parallel int) error {
	if parallel <= 0 {
		parallel = 2
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, name := range names {
		g.Go(func() error {
			_, err := s.ensureBuilt(ctx, strings.ToLower(name))
			return err
		})
	}
	return g.Wait()
}
