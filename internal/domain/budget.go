package domain

import (
	"fmt"
	"time"
)

// BudgetPeriod is a token budget accounting window. Windows are aligned to UTC.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// ParseBudgetPeriod accepts "daily"/"day" and "monthly"/"month". Empty means daily.
func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	switch s {
	case "", "day", string(BudgetDaily):
		return BudgetDaily, nil
	case "month", string(BudgetMonthly):
		return BudgetMonthly, nil
	default:
		return "", fmt.Errorf("unknown budget period %q: %w", s, ErrInvalidInput)
	}
}

// Bounds returns the UTC window [start, end) containing t.
func (p BudgetPeriod) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	if p == BudgetMonthly {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// BudgetSnapshot is the counter state of one window. Limit 0 means unlimited,
// in which case Remaining is -1.
type BudgetSnapshot struct {
	Limit     int64
	Used      int64
	Remaining int64
}

// UsageReport describes LLM token consumption for one window.
type UsageReport struct {
	Period      BudgetPeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Model       string
	Budget      BudgetSnapshot
	Exhausted   bool
}
