// Package search wraps a raw search backend with bounded retry, backoff and memoization.
package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/metrics"
	"github.com/kailas-cloud/marketlens/internal/retry"
)

// Compile-time check: Client implements domain.ResilientSearcher.
var _ domain.ResilientSearcher = (*Client)(nil)

// Options tune the resilient client. Zero values take the defaults from domain.DefaultSearchConfig.
type Options struct {
	Provider    string
	MaxRetries  int
	BackoffBase time.Duration
	// Sleep replaces the real backoff wait, e.g. with a fake clock in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// Client is the resilient search client. It never returns an error: every
// call yields a tagged domain.SearchResult.
type Client struct {
	backend  Backend
	cache    Cache
	policy   retry.Policy
	provider string
	group    singleflight.Group
	logger   *zap.Logger
}

// New creates a resilient search client over backend, memoizing into cache.
func New(backend Backend, cache Cache, opts Options) *Client {
	defaults := domain.DefaultSearchConfig()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaults.BackoffBase
	}
	if opts.Provider == "" {
		opts.Provider = "perplexity"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		backend:  backend,
		cache:    cache,
		provider: opts.Provider,
		logger:   logger,
	}
	c.policy = retry.Policy{
		MaxAttempts: opts.MaxRetries,
		Backoff:     retry.Exponential(opts.BackoffBase),
		Sleep:       opts.Sleep,
		Retryable:   isRetryable,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Warn("Search attempt failed, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	}
	return c
}

// sharedAttempts bounds how often a caller with a live context re-joins after
// the in-flight call ended in a cancellation.
const sharedAttempts = 2

type shared struct {
	result    domain.SearchResult
	cacheable bool
}

// Search returns the memoized outcome for query, or runs the retry loop once
// per query even when called concurrently. The shared call is detached from the
// callers' cancellation; each caller stops waiting when its own ctx is done.
func (c *Client) Search(ctx context.Context, query string) domain.SearchResult {
	if r, ok := c.cache.Get(ctx, query); ok {
		return r
	}

	var last domain.SearchResult
	for range sharedAttempts {
		ch := c.group.DoChan(query, func() (any, error) {
			sctx := context.WithoutCancel(ctx)
			if r, ok := c.cache.Get(sctx, query); ok {
				return shared{result: r, cacheable: true}, nil
			}
			r, cacheable := c.search(sctx, query)
			if cacheable {
				c.cache.Put(sctx, query, r)
			}
			return shared{result: r, cacheable: cacheable}, nil
		})

		select {
		case <-ctx.Done():
			return domain.SearchResult{Kind: domain.SearchTransientFailure, Reason: ctx.Err().Error()}
		case res := <-ch:
			sh := res.Val.(shared)
			if sh.cacheable || ctx.Err() != nil {
				return sh.result
			}
			last = sh.result
		}
	}
	return last
}

// search runs the retry loop. Outcomes caused by cancellation are not cacheable:
// they say nothing about the query itself.
func (c *Client) search(ctx context.Context, query string) (domain.SearchResult, bool) {
	logger := c.logger.With(zap.String("query", query))
	start := time.Now()

	text, attempts, err := retry.Do(ctx, c.policy, func(ctx context.Context, _ int) (string, error) {
		return c.backend.Search(ctx, query)
	})

	var r domain.SearchResult
	switch {
	case err == nil:
		r = domain.SearchResult{Kind: domain.SearchOK, Text: text, Attempts: attempts}
	case errors.Is(err, domain.ErrSearchPermanent):
		r = domain.SearchResult{Kind: domain.SearchPermanentFailure, Reason: err.Error(), Attempts: attempts}
	default:
		r = domain.SearchResult{Kind: domain.SearchTransientFailure, Reason: err.Error(), Attempts: attempts}
	}

	metrics.SearchRequestsTotal.WithLabelValues(c.provider, string(r.Kind)).Inc()
	if r.OK() {
		logger.Debug("Search succeeded", zap.Int("attempts", attempts), zap.Duration("duration", time.Since(start)))
	} else {
		logger.Warn("Search failed",
			zap.String("kind", string(r.Kind)),
			zap.Int("attempts", attempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	return r, err == nil || !isCancellation(err)
}

func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrSearchPermanent) {
		return false
	}
	return !isCancellation(err)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
