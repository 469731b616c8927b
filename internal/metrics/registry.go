package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketlens"

var registerOnce sync.Once

// Register registers every collector with the default registry. Must be called from main;
// repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			SearchRequestsTotal,
			SearchAttemptsTotal,
			SearchRequestDuration,
			SearchCacheTotal,
			LLMRequestsTotal,
			LLMRequestDuration,
			LLMTokensTotal,
			LLMBudgetTokensRemaining,
			StageDuration,
			ToolCallsTotal,
		)
	})
}
