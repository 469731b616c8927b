package search

import (
	"context"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// Cache memoizes final search outcomes per exact query.
type Cache interface {
	Get(ctx context.Context, query string) (domain.SearchResult, bool)
	Put(ctx context.Context, query string, r domain.SearchResult)
}

// Backend performs one raw search attempt.
type Backend interface {
	Search(ctx context.Context, query string) (string, error)
}
