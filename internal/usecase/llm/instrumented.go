// Package llm decorates the agent chat model with budget enforcement and observability.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedChat wraps a domain.ChatModel with budget enforcement, metrics and logging.
type InstrumentedChat struct {
	inner  domain.ChatModel
	model  string
	budget BudgetChecker
	logger *zap.Logger
}

// NewInstrumentedChat wraps a chat model. budget may be nil.
func NewInstrumentedChat(inner domain.ChatModel, model string, budget BudgetChecker, logger *zap.Logger) *InstrumentedChat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedChat{inner: inner, model: model, budget: budget, logger: logger}
}

// Chat checks budget, delegates to the inner model, and records usage.
func (c *InstrumentedChat) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "budget_rejected").Inc()
			c.logger.Error("Budget exceeded", zap.String("model", c.model), zap.Error(err))
			return domain.ChatResponse{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.inner.Chat(ctx, req)
	duration := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		c.logger.Error("Chat request failed",
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()

	if resp.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.CompletionTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.model, "total").Add(float64(resp.TotalTokens))

		if c.budget != nil {
			c.budget.Record(int64(resp.TotalTokens))
			metrics.LLMBudgetTokensRemaining.WithLabelValues("daily").Set(float64(c.budget.RemainingDaily()))
			metrics.LLMBudgetTokensRemaining.WithLabelValues("monthly").Set(float64(c.budget.RemainingMonthly()))
		}
	}

	c.logger.Debug("Chat request completed",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("tool_calls", len(resp.Message.ToolCalls)),
		zap.Int("total_tokens", resp.TotalTokens),
	)
	return resp, nil
}

// HealthCheck forwards to the inner model when it supports health checks.
func (c *InstrumentedChat) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
