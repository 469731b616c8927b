package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// scriptedModel replays responses in order and records every request.
type scriptedModel struct {
	responses []domain.ChatResponse
	err       error
	requests  []domain.ChatRequest
}

func (m *scriptedModel) Chat(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return domain.ChatResponse{}, m.err
	}
	i := min(len(m.requests)-1, len(m.responses)-1)
	return m.responses[i], nil
}

type fakeTools struct {
	calls   []string
	results map[string]string
	errs    map[string]error
}

func (f *fakeTools) Specs(names []string) ([]domain.ToolSpec, error) {
	specs := make([]domain.ToolSpec, 0, len(names))
	for _, n := range names {
		if n == "missing" {
			return nil, domain.ErrInvalidInput
		}
		specs = append(specs, domain.ToolSpec{Name: n})
	}
	return specs, nil
}

func (f *fakeTools) Call(_ context.Context, name, _ string) (string, error) {
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return "", err
	}
	return f.results[name], nil
}

func testStage() domain.Stage {
	return domain.Stage{
		Name:           "market_analysis",
		Instruction:    "Analyze the market for dental SaaS.",
		ExpectedOutput: "A report.",
		Agent: domain.AgentProfile{
			Role:      "Market Research Analyst",
			Goal:      "Size markets",
			Backstory: "Expert.",
			Tools:     []string{"search_web"},
		},
	}
}

func decodeOutput(t *testing.T, res domain.StageResult) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Output, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return out
}

func assistant(content string, calls ...domain.ToolCall) domain.ChatResponse {
	return domain.ChatResponse{Message: domain.ChatMessage{
		Role: domain.RoleAssistant, Content: content, ToolCalls: calls,
	}}
}

func TestRun_DirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []domain.ChatResponse{assistant("Market is $2B")}}
	e := New(model, &fakeTools{}, 0)

	res, err := e.Run(context.Background(), testStage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stage != "market_analysis" {
		t.Errorf("unexpected stage: %s", res.Stage)
	}
	out := decodeOutput(t, res)
	if out["final_answer"] != "Market is $2B" || out["raw"] != "Market is $2B" {
		t.Errorf("unexpected output: %v", out)
	}

	req := model.requests[0]
	if len(req.Tools) != 1 || req.Tools[0].Name != "search_web" {
		t.Errorf("unexpected tools: %+v", req.Tools)
	}
	if !strings.Contains(req.Messages[0].Content, "Market Research Analyst") {
		t.Errorf("system prompt missing role: %q", req.Messages[0].Content)
	}
	if !strings.Contains(req.Messages[1].Content, "dental SaaS") || !strings.Contains(req.Messages[1].Content, "A report.") {
		t.Errorf("task prompt incomplete: %q", req.Messages[1].Content)
	}
}

func TestRun_ToolLoop(t *testing.T) {
	model := &scriptedModel{responses: []domain.ChatResponse{
		assistant("", domain.ToolCall{ID: "c1", Name: "search_web", Arguments: `{"query":"x"}`}),
		assistant("Final with data"),
	}}
	tools := &fakeTools{results: map[string]string{"search_web": "42 vendors"}}
	e := New(model, tools, 0)

	res, err := e.Run(context.Background(), testStage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools.calls) != 1 {
		t.Fatalf("expected 1 tool call, got %v", tools.calls)
	}

	second := model.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != domain.RoleTool || last.ToolCallID != "c1" || last.Content != "42 vendors" {
		t.Errorf("tool result not fed back: %+v", last)
	}
	prev := second[len(second)-2]
	if prev.Role != domain.RoleAssistant || len(prev.ToolCalls) != 1 {
		t.Errorf("assistant tool turn not kept: %+v", prev)
	}

	out := decodeOutput(t, res)
	if out["final_answer"] != "Final with data" {
		t.Errorf("unexpected output: %v", out)
	}
	if out["tool_calls"] != float64(1) || out["rounds"] != float64(2) {
		t.Errorf("unexpected counters: %v", out)
	}
}

func TestRun_ToolFailureFedBack(t *testing.T) {
	model := &scriptedModel{responses: []domain.ChatResponse{
		assistant("", domain.ToolCall{ID: "c1", Name: "calculate_cagr", Arguments: `{}`}),
		assistant("Could not compute CAGR"),
	}}
	tools := &fakeTools{errs: map[string]error{"calculate_cagr": domain.ErrInvalidCAGRInput}}
	e := New(model, tools, 0)

	if _, err := e.Run(context.Background(), testStage()); err != nil {
		t.Fatalf("tool failure must not fail the stage: %v", err)
	}

	msgs := model.requests[1].Messages
	got := msgs[len(msgs)-1].Content
	if !strings.HasPrefix(got, "Tool calculate_cagr failed: ") {
		t.Errorf("unexpected tool message: %q", got)
	}
}

func TestRun_RoundBudgetExhausted(t *testing.T) {
	call := domain.ToolCall{ID: "c", Name: "search_web", Arguments: `{}`}
	model := &scriptedModel{responses: []domain.ChatResponse{
		assistant("thinking", call),
		assistant("", call),
	}}
	tools := &fakeTools{results: map[string]string{"search_web": "r"}}
	e := New(model, tools, 3)

	res, err := e.Run(context.Background(), testStage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.requests) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(model.requests))
	}

	out := decodeOutput(t, res)
	if _, ok := out["final_answer"]; ok {
		t.Errorf("expected no final_answer, got %v", out)
	}
	if out["raw"] != "thinking" {
		t.Errorf("expected raw to keep last text, got %v", out)
	}

	// Last-round note goes out before the final round.
	msgs := model.requests[2].Messages
	if msgs[len(msgs)-1].Content != lastRoundNote {
		t.Errorf("expected last-round note, got %q", msgs[len(msgs)-1].Content)
	}
}

func TestRun_ModelError(t *testing.T) {
	model := &scriptedModel{err: domain.ErrLLMProviderError}
	e := New(model, &fakeTools{}, 0)

	_, err := e.Run(context.Background(), testStage())
	if !errors.Is(err, domain.ErrExecutorFailed) || !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected executor + provider error, got %v", err)
	}
}

func TestRun_UnknownTool(t *testing.T) {
	stage := testStage()
	stage.Agent.Tools = []string{"missing"}

	_, err := New(&scriptedModel{}, &fakeTools{}, 0).Run(context.Background(), stage)
	if !errors.Is(err, domain.ErrExecutorFailed) {
		t.Fatalf("expected ErrExecutorFailed, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &scriptedModel{responses: []domain.ChatResponse{assistant("x")}}
	_, err := New(model, &fakeTools{}, 0).Run(ctx, testStage())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(model.requests) != 0 {
		t.Errorf("expected no model calls, got %d", len(model.requests))
	}
}
