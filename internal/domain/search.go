package domain

import (
	"context"
	"fmt"
)

// SearchKind tags the outcome of a resilient search.
type SearchKind string

const (
	// SearchOK carries real search text.
	SearchOK SearchKind = "ok"
	// SearchTransientFailure means every attempt failed with a retryable error.
	SearchTransientFailure SearchKind = "transient_failure"
	// SearchPermanentFailure means the backend rejected the request outright.
	SearchPermanentFailure SearchKind = "permanent_failure"
)

// SearchResult is the tagged outcome of a search: text on success, a reason otherwise.
type SearchResult struct {
	Kind     SearchKind `json:"kind"`
	Text     string     `json:"text,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Attempts int        `json:"attempts"`
}

// OK reports whether the search produced data.
func (r SearchResult) OK() bool { return r.Kind == SearchOK }

// String renders the result the way agents consume it.
func (r SearchResult) String() string {
	if r.OK() {
		return r.Text
	}
	return fmt.Sprintf("An error occurred while performing the search: %s", r.Reason)
}

// Searcher performs a single raw search call. Implementations return errors
// wrapping ErrSearchTransient or ErrSearchPermanent.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// ResilientSearcher never fails: it always returns a tagged result.
type ResilientSearcher interface {
	Search(ctx context.Context, query string) SearchResult
}
