package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/db"
	"github.com/kailas-cloud/marketlens/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "search_cache:"

// store is the consumer interface for the persistent tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Tiered puts the in-process LRU in front of an optional shared store.
// Only successful results reach the store; failures stay process-local.
type Tiered struct {
	memory     *Memory
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewTiered creates a two-tier cache. A nil store or a non-positive ttl disables the second tier.
// cacheTotal is a counter vec with labels "tier" and "result", passed explicitly.
func NewTiered(
	memory *Memory,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Tiered {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		s = nil
	}
	return &Tiered{
		memory:     memory,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get looks the query up in memory, then in the store. Store hits are promoted to memory.
func (t *Tiered) Get(ctx context.Context, query string) (domain.SearchResult, bool) {
	if r, ok := t.memory.Get(query); ok {
		t.inc("memory", "hit")
		return r, true
	}
	t.inc("memory", "miss")

	if t.store == nil {
		return domain.SearchResult{}, false
	}

	r, ok := t.getFromStore(ctx, query)
	if !ok {
		t.inc("store", "miss")
		return domain.SearchResult{}, false
	}
	t.inc("store", "hit")
	t.memory.Add(query, r)
	return r, true
}

// Put memoizes a final outcome.
func (t *Tiered) Put(ctx context.Context, query string, r domain.SearchResult) {
	t.memory.Add(query, r)
	if t.store != nil && r.OK() {
		t.putToStore(ctx, query, r)
	}
}

// Len returns the number of queries in the memory tier.
func (t *Tiered) Len() int { return t.memory.Len() }

func (t *Tiered) inc(tier, result string) {
	if t.cacheTotal != nil {
		t.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

func cacheKey(query string) string {
	h := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (t *Tiered) getFromStore(ctx context.Context, query string) (domain.SearchResult, bool) {
	key := cacheKey(query)
	data, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.logger.Warn("Failed to get cached search result", zap.String("key", key), zap.Error(err))
		}
		return domain.SearchResult{}, false
	}

	var r domain.SearchResult
	if err := json.Unmarshal(data, &r); err != nil || !r.OK() {
		t.logger.Warn("Failed to parse cached search result", zap.String("key", key), zap.Error(err))
		return domain.SearchResult{}, false
	}
	return r, true
}

func (t *Tiered) putToStore(ctx context.Context, query string, r domain.SearchResult) {
	key := cacheKey(query)
	data, err := json.Marshal(r)
	if err != nil {
		t.logger.Warn("Failed to encode search result", zap.String("key", key), zap.Error(err))
		return
	}
	if err := t.store.SetWithTTL(ctx, key, data, t.ttl); err != nil {
		t.logger.Warn("Failed to cache search result", zap.String("key", key), zap.Error(err))
	}
}
