// Command marketlens runs the market research pipeline once and prints the report.
//
// Usage:
//
//	marketlens <market_opportunity> <trace_id>
//
// Progress lines and the final JSON report go to stdout; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/app"
	"github.com/kailas-cloud/marketlens/internal/config"
	"github.com/kailas-cloud/marketlens/internal/domain"
	logpkg "github.com/kailas-cloud/marketlens/internal/logger"
	"github.com/kailas-cloud/marketlens/internal/usecase/pipeline"
	"github.com/kailas-cloud/marketlens/internal/version"
)

const (
	exitOK       = 0
	exitUsage    = 1 // missing arguments or an unextractable stage answer
	exitInternal = 2 // executor or startup failure
)

const usage = "Usage: marketlens <market_opportunity> <trace_id>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(stdout, usage)
		return exitUsage
	}
	subject, traceID := args[0], args[1]

	if _, err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
		return exitInternal
	}

	env := config.GetEnv()
	cfg, err := config.Resolve(env)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitInternal
	}

	logger, err := logpkg.NewWriterLogger(stderr, env, cfg.Logging.Level)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return exitInternal
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("Starting marketlens",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("trace_id", traceID),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to open store", zap.Error(err))
		return exitInternal
	}
	defer store.Close()

	progress := func(line string) { _, _ = fmt.Fprintln(stdout, line) }
	a, err := app.New(ctx, cfg, store, logger, pipeline.WithProgress(progress))
	if err != nil {
		logger.Error("Failed to wire pipeline", zap.Error(err))
		return exitInternal
	}

	ctx = logpkg.ContextWithLogger(ctx, logger)
	report, err := a.Runner.Run(ctx, subject, traceID)
	if err != nil {
		logger.Error("Analysis failed", zap.String("trace_id", traceID), zap.Error(err))
		return exitCode(err)
	}

	line, err := json.Marshal(report)
	if err != nil {
		logger.Error("Failed to encode report", zap.Error(err))
		return exitInternal
	}
	_, _ = fmt.Fprintln(stdout, string(line))
	return exitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrStageOutputMissing):
		return exitUsage
	default:
		return exitInternal
	}
}
