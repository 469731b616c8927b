// Package app is the composition root shared by the CLI and the API server.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/config"
	"github.com/kailas-cloud/marketlens/internal/db"
	"github.com/kailas-cloud/marketlens/internal/db/memory"
	dbRedis "github.com/kailas-cloud/marketlens/internal/db/redis"
	"github.com/kailas-cloud/marketlens/internal/metrics"
	budgetrepo "github.com/kailas-cloud/marketlens/internal/repository/budget"
	"github.com/kailas-cloud/marketlens/internal/repository/searchcache"
	openaiT "github.com/kailas-cloud/marketlens/internal/transport/openai"
	"github.com/kailas-cloud/marketlens/internal/usecase/agent"
	llmuc "github.com/kailas-cloud/marketlens/internal/usecase/llm"
	"github.com/kailas-cloud/marketlens/internal/usecase/pipeline"
	searchuc "github.com/kailas-cloud/marketlens/internal/usecase/search"
	"github.com/kailas-cloud/marketlens/internal/usecase/tools"
)

const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// App holds the wired pipeline and the pieces the API server also needs.
type App struct {
	Runner *pipeline.Runner
	Chat   *llmuc.InstrumentedChat
	Search *searchuc.Client
	Budget *llmuc.BudgetTracker // nil when no limits are configured
}

// OpenStore creates the shared store for the configured driver and waits for it.
// redis and valkey share the RESP client.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case "memory":
		store, err = memory.NewStore(cfg.MemoryMaxKeys)
	case "redis", "valkey":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s store not ready: %w", cfg.Driver, err)
	}
	return store, nil
}

// New wires search transport -> cache -> resilient client -> tools, and
// chat transport -> budget -> executor -> pipeline runner.
func New(
	ctx context.Context,
	cfg config.Config,
	store db.Store,
	logger *zap.Logger,
	opts ...pipeline.Option,
) (*App, error) {
	metrics.Register()

	searcher := openaiT.NewSearcher(&openaiT.SearchConfig{
		APIKey:  cfg.Search.APIKey,
		BaseURL: cfg.Search.BaseURL,
		Model:   cfg.Search.Model,
		Timeout: time.Duration(cfg.Search.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	mem, err := searchcache.NewMemory(cfg.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	// An in-process store would only duplicate the LRU.
	var l2 db.KVStore
	if cfg.Database.Driver != "memory" {
		l2 = store
	}
	cache := searchcache.NewTiered(mem, l2,
		time.Duration(cfg.Search.PersistentTTLHours)*time.Hour, metrics.SearchCacheTotal, logger)

	client := searchuc.New(searcher, cache, searchuc.Options{
		MaxRetries:  cfg.Search.MaxRetries,
		BackoffBase: time.Duration(cfg.Search.BackoffBaseMs) * time.Millisecond,
		Logger:      logger,
	})

	chat := openaiT.NewChatModel(&openaiT.ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	budget := buildBudget(ctx, cfg.LLM, store, logger)

	// A typed nil *BudgetTracker inside the interface would not compare equal to nil.
	var checker llmuc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	instrumented := llmuc.NewInstrumentedChat(chat, cfg.LLM.Model, checker, logger)

	exec := agent.New(instrumented, tools.Default(client), cfg.LLM.MaxToolRounds)

	return &App{
		Runner: pipeline.New(exec, opts...),
		Chat:   instrumented,
		Search: client,
		Budget: budget,
	}, nil
}

func buildBudget(ctx context.Context, cfg config.LLMConfig, store db.Store, logger *zap.Logger) *llmuc.BudgetTracker {
	b := cfg.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := llmuc.BudgetActionWarn
	if b.Action == string(llmuc.BudgetActionReject) {
		action = llmuc.BudgetActionReject
	}
	tracker := llmuc.NewBudgetTracker(cfg.Model, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger)
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
	}
	return tracker
}
