// Package searchcache memoizes resilient search outcomes per exact query string.
package searchcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// Memory is a bounded, process-lifetime LRU of search outcomes keyed by the exact query.
type Memory struct {
	items *lru.Cache[string, domain.SearchResult]
}

// NewMemory creates an LRU holding at most size queries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = domain.DefaultSearchConfig().CacheSize
	}
	items, err := lru.New[string, domain.SearchResult](size)
	if err != nil {
		return nil, err
	}
	return &Memory{items: items}, nil
}

// Get returns the memoized outcome and refreshes its recency.
func (m *Memory) Get(query string) (domain.SearchResult, bool) {
	return m.items.Get(query)
}

// Add memoizes an outcome unless the query is already present: the first
// final outcome for a query wins.
func (m *Memory) Add(query string, result domain.SearchResult) {
	m.items.ContainsOrAdd(query, result)
}

// Len returns the number of memoized queries.
func (m *Memory) Len() int { return m.items.Len() }
