// Package memory is an in-process db.Store used when no Redis/Valkey server is configured.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/marketlens/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultMaxKeys bounds the in-process store.
const DefaultMaxKeys = 10_000

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Store keeps keys in a bounded LRU with per-key expiry checked on read.
type Store struct {
	mu    sync.Mutex // serializes read-modify-write (IncrBy, Expire)
	items *lru.Cache[string, entry]
	now   func() time.Time
}

// NewStore creates an in-process store holding at most maxKeys keys.
func NewStore(maxKeys int) (*Store, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	items, err := lru.New[string, entry](maxKeys)
	if err != nil {
		return nil, err
	}
	return &Store{items: items, now: time.Now}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close drops all keys.
func (s *Store) Close() { s.items.Purge() }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// Get retrieves a live value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Add(key, entry{value: append([]byte(nil), value...)})
	return nil
}

// SetWithTTL stores a value that disappears after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Add(key, entry{value: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)})
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Remove(key)
	return nil
}

// IncrBy increments an integer value, creating it at zero when missing.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	var cur int64
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: db.ErrNotInteger}
		}
		cur = n
	}
	e.value = []byte(strconv.FormatInt(cur+val, 10))
	s.items.Add(key, e)
	return nil
}

// Expire sets TTL on a key. When nx=true, only keys without an expiry are touched.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.items.Add(key, e)
	return nil
}

// live returns the entry if present and not expired. Caller holds s.mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.items.Get(key)
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.items.Remove(key)
		return entry{}, false
	}
	return e, true
}
