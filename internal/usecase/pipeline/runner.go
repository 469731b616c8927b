// Package pipeline runs the research stages in order and assembles the report.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/logger"
	"github.com/kailas-cloud/marketlens/internal/metrics"
)

// Progress receives human-readable status lines.
type Progress func(line string)

// Runner executes stages strictly in order. Each stage sees only the subject,
// never the output of earlier stages.
type Runner struct {
	exec     domain.Executor
	stages   func(subject string) []domain.Stage
	progress Progress
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(r *Runner) { r.progress = p }
}

// WithStages replaces the stage builder.
func WithStages(build func(subject string) []domain.Stage) Option {
	return func(r *Runner) { r.stages = build }
}

// New creates a runner over exec.
func New(exec domain.Executor, opts ...Option) *Runner {
	r := &Runner{exec: exec, stages: BuildStages, progress: func(string) {}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every stage for subject and returns the report tagged with traceID.
// Executor failures come back as *domain.StageError and no partial report is produced.
func (r *Runner) Run(ctx context.Context, subject, traceID string) (domain.Report, error) {
	if strings.TrimSpace(subject) == "" {
		return domain.Report{}, fmt.Errorf("market opportunity is empty: %w", domain.ErrInvalidInput)
	}

	log := logger.FromContext(ctx).With(zap.String("trace_id", traceID))
	ctx = logger.ContextWithLogger(ctx, log)

	r.progress("Analyzing market opportunity: " + subject)

	stages := r.stages(subject)
	results := make([]domain.StageResult, 0, len(stages))
	for i, st := range stages {
		r.progress(fmt.Sprintf("Running stage %d/%d: %s", i+1, len(stages), st.Name))

		start := time.Now()
		res, err := r.exec.Run(ctx, st)
		duration := time.Since(start)

		if err != nil {
			metrics.StageDuration.WithLabelValues(st.Name, "error").Observe(duration.Seconds())
			log.Error("Stage failed", zap.String("stage", st.Name), zap.Duration("duration", duration), zap.Error(err))
			return domain.Report{}, &domain.StageError{Stage: st.Name, Err: err}
		}
		metrics.StageDuration.WithLabelValues(st.Name, "success").Observe(duration.Seconds())
		log.Info("Stage completed", zap.String("stage", st.Name), zap.Duration("duration", duration))

		res.Stage = st.Name
		results = append(results, res)
	}

	r.progress("Analysis completed")

	report, err := Assemble(traceID, results)
	if err != nil {
		log.Error("Report assembly failed", zap.Error(err))
		return domain.Report{}, err
	}
	return report, nil
}
