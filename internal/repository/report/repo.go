// Package report persists finished reports by trace id.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/marketlens/internal/db"
	"github.com/kailas-cloud/marketlens/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "report:"

// DefaultTTL is how long reports are kept when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// store is the consumer interface for reports (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo stores reports as JSON documents with a TTL.
type Repo struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a report repository.
func New(s store, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, ttl: ttl, now: time.Now}
}

func reportKey(traceID string) string { return keyPrefix + traceID }

// Save stores r under its trace id, replacing any earlier report with the same id.
func (r *Repo) Save(ctx context.Context, rep domain.Report) error {
	if rep.TraceID == "" {
		return fmt.Errorf("report without trace id: %w", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(toDTO(rep, r.now()))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, reportKey(rep.TraceID), data, r.ttl); err != nil {
		return fmt.Errorf("save report %s: %w", rep.TraceID, err)
	}
	return nil
}

// Get loads the report for traceID, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, traceID string) (domain.Report, error) {
	data, err := r.store.Get(ctx, reportKey(traceID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, fmt.Errorf("get report %s: %w", traceID, err)
	}

	var dto reportDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.Report{}, fmt.Errorf("decode report %s: %w", traceID, err)
	}
	return fromDTO(dto), nil
}
