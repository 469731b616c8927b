// Command marketlens-api serves the research pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/app"
	"github.com/kailas-cloud/marketlens/internal/config"
	logpkg "github.com/kailas-cloud/marketlens/internal/logger"
	reportrepo "github.com/kailas-cloud/marketlens/internal/repository/report"
	chiTransport "github.com/kailas-cloud/marketlens/internal/transport/chi"
	healthuc "github.com/kailas-cloud/marketlens/internal/usecase/health"
	"github.com/kailas-cloud/marketlens/internal/usecase/pipeline"
	usageuc "github.com/kailas-cloud/marketlens/internal/usecase/usage"
	"github.com/kailas-cloud/marketlens/internal/version"
)

func main() {
	if _, err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Resolve(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting marketlens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Progress lines are logged at debug level.
	a, err := app.New(ctx, cfg, store, logger, pipeline.WithProgress(func(line string) {
		logger.Debug(line)
	}))
	if err != nil {
		logger.Fatal("Failed to wire pipeline", zap.Error(err))
	}

	reports := reportrepo.New(store, time.Duration(cfg.Reports.TTLHours)*time.Hour)
	healthSvc := healthuc.New(store, map[string]healthuc.ProviderChecker{"llm": a.Chat})

	// Leave the interface nil when no budget is configured.
	var budgetReader usageuc.BudgetReader
	if a.Budget != nil {
		budgetReader = a.Budget
	}
	usageSvc := usageuc.New(budgetReader, cfg.LLM.Model)

	server := chiTransport.NewServer(a.Runner, reports, healthSvc, logger).WithUsage(usageSvc)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
