// Package budget persists LLM token budget counters in the shared KV store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/marketlens/internal/db"
	"github.com/kailas-cloud/marketlens/internal/domain"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one counter per scope and period window (INCRBY + GET with TTL).
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Keys outlive their window by the given TTLs
// (recommended: 48h daily, 62 days monthly).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Key returns the counter key for scope in the window containing t.
func Key(scope string, p domain.BudgetPeriod, t time.Time) string {
	layout := "2006-01-02"
	if p == domain.BudgetMonthly {
		layout = "2006-01"
	}
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, scope, p, t.UTC().Format(layout))
}

// Add increments the counter for the window containing t and arms its TTL once.
func (s *Store) Add(ctx context.Context, scope string, p domain.BudgetPeriod, t time.Time, tokens int64) error {
	key := Key(scope, p, t)
	if err := s.store.IncrBy(ctx, key, tokens); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	ttl := s.dailyTTL
	if p == domain.BudgetMonthly {
		ttl = s.monthTTL
	}
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

// Load returns the counter for the window containing t, or 0 if none was written.
func (s *Store) Load(ctx context.Context, scope string, p domain.BudgetPeriod, t time.Time) (int64, error) {
	key := Key(scope, p, t)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}
