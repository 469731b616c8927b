// Package usage reports LLM token consumption against the configured budget.
package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// Service handles usage reporting.
type Service struct {
	br    BudgetReader
	model string
	now   func() time.Time
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(br BudgetReader, model string) *Service {
	return &Service{br: br, model: model, now: time.Now}
}

// GetReport builds a usage report for the window of period containing now.
func (s *Service) GetReport(_ context.Context, period domain.BudgetPeriod) domain.UsageReport {
	start, end := period.Bounds(s.now())

	snap := domain.BudgetSnapshot{Remaining: -1}
	if s.br != nil {
		snap = s.br.Snapshot(period)
	}

	return domain.UsageReport{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Model:       s.model,
		Budget:      snap,
		Exhausted:   snap.Limit > 0 && snap.Remaining <= 0,
	}
}
