package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// recordingExecutor answers every stage with a canned document and records what it saw.
type recordingExecutor struct {
	seen []domain.Stage
	docs map[string]string
	errs map[string]error
}

func (e *recordingExecutor) Run(_ context.Context, st domain.Stage) (domain.StageResult, error) {
	e.seen = append(e.seen, st)
	if err := e.errs[st.Name]; err != nil {
		return domain.StageResult{}, err
	}
	doc, ok := e.docs[st.Name]
	if !ok {
		doc = fmt.Sprintf(`{"final_answer":%q}`, st.Name+" answer")
	}
	return result(st.Name, doc), nil
}

func TestRun_TraceIDAndOrder(t *testing.T) {
	exec := &recordingExecutor{}
	var progress []string
	r := New(exec, WithProgress(func(line string) { progress = append(progress, line) }))

	report, err := r.Run(context.Background(), "vertical SaaS for dentists", "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TraceID != "t-1" {
		t.Errorf("trace id = %q, want t-1", report.TraceID)
	}
	if len(report.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(report.Sections))
	}
	if report.Sections[0].Name != StageMarketAnalysis || report.Sections[1].Name != StageCompetitorAnalysis {
		t.Errorf("unexpected section order: %+v", report.Sections)
	}
	if report.Sections[0].Text != "market_analysis answer" {
		t.Errorf("unexpected text: %q", report.Sections[0].Text)
	}
	if len(progress) == 0 {
		t.Error("expected progress lines")
	}
}

func TestRun_StagesSeeOnlySubject(t *testing.T) {
	exec := &recordingExecutor{}
	r := New(exec)

	if _, err := r.Run(context.Background(), "drone insurance", "t-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exec.seen) != 2 {
		t.Fatalf("expected 2 stage runs, got %d", len(exec.seen))
	}
	for _, st := range exec.seen {
		if !strings.Contains(st.Instruction, "drone insurance") {
			t.Errorf("stage %s instruction missing subject", st.Name)
		}
		if strings.Contains(st.Instruction, "answer") {
			t.Errorf("stage %s instruction leaks earlier output: %q", st.Name, st.Instruction)
		}
	}
	if !strings.Contains(exec.seen[1].Instruction, "3-5") {
		t.Error("competitor stage should ask for 3-5 competitors")
	}
}

func TestRun_SameSubjectSameStages(t *testing.T) {
	a := BuildStages("x")
	b := BuildStages("x")
	for i := range a {
		if a[i].Instruction != b[i].Instruction || a[i].Agent.Role != b[i].Agent.Role {
			t.Errorf("stage %d differs between builds", i)
		}
	}
}

func TestRun_ExecutorErrorStopsPipeline(t *testing.T) {
	boom := fmt.Errorf("llm down: %w", domain.ErrExecutorFailed)
	exec := &recordingExecutor{errs: map[string]error{StageMarketAnalysis: boom}}

	_, err := New(exec).Run(context.Background(), "x", "t")
	if !errors.Is(err, boom) {
		t.Fatalf("expected executor error to propagate, got %v", err)
	}
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageMarketAnalysis {
		t.Errorf("expected StageError for market stage, got %v", err)
	}
	if len(exec.seen) != 1 {
		t.Errorf("expected competitor stage not to run, got %d runs", len(exec.seen))
	}
}

func TestRun_MissingOutput(t *testing.T) {
	exec := &recordingExecutor{docs: map[string]string{StageCompetitorAnalysis: `{"final_answer":null}`}}

	_, err := New(exec).Run(context.Background(), "x", "t")
	if !errors.Is(err, domain.ErrStageOutputMissing) {
		t.Fatalf("expected ErrStageOutputMissing, got %v", err)
	}
}

func TestRun_EmptySubject(t *testing.T) {
	exec := &recordingExecutor{}
	_, err := New(exec).Run(context.Background(), "  ", "t")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(exec.seen) != 0 {
		t.Error("no stage should run for an empty subject")
	}
}

func TestRun_CustomStages(t *testing.T) {
	exec := &recordingExecutor{}
	r := New(exec, WithStages(func(subject string) []domain.Stage {
		return []domain.Stage{{Name: "a", Instruction: subject}, {Name: "b"}, {Name: "c"}}
	}))

	report, err := r.Run(context.Background(), "s", "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Sections) != 3 || report.Sections[2].Name != "c" {
		t.Errorf("unexpected sections: %+v", report.Sections)
	}
}
