package usage

import "github.com/kailas-cloud/marketlens/internal/domain"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Snapshot(p domain.BudgetPeriod) domain.BudgetSnapshot
}
