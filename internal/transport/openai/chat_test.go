package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

func newTestChatModel(url string) *ChatModel {
	return NewChatModel(&ChatConfig{
		APIKey:  "sk-test",
		BaseURL: url,
		Model:   "gpt-4",
		Logger:  zap.NewNop(),
	})
}

func TestChatModel_ToolCallRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "search" || req.Tools[0].Type != "function" {
			t.Fatalf("unexpected tools: %+v", req.Tools)
		}
		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(req.Messages))
		}
		if got := req.Messages[1].ToolCalls; len(got) != 1 || got[0].Function.Name != "search" {
			t.Errorf("assistant tool calls not forwarded: %+v", got)
		}
		if req.Messages[2].Role != "tool" || req.Messages[2].ToolCallID != "call_1" {
			t.Errorf("unexpected tool message: %+v", req.Messages[2])
		}

		writeCompletion(w, map[string]any{
			"role":    "assistant",
			"content": "",
			"tool_calls": []map[string]any{{
				"id":   "call_2",
				"type": "function",
				"function": map[string]any{
					"name":      "calculate_cagr",
					"arguments": `{"initial_value":1,"final_value":2,"years":1}`,
				},
			}},
		}, "tool_calls")
	}))
	defer server.Close()

	resp, err := newTestChatModel(server.URL).Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "size the market"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "call_1", Name: "search", Arguments: `{"query":"x"}`}}},
			{Role: domain.RoleTool, ToolCallID: "call_1", Content: "result"},
		},
		Tools: []domain.ToolSpec{{
			Name:       "search",
			Parameters: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`),
		}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.FinishReason != "tool_calls" {
		t.Errorf("unexpected finish reason: %s", resp.FinishReason)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_2" || tc.Name != "calculate_cagr" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if resp.PromptTokens != 12 || resp.CompletionTokens != 8 || resp.TotalTokens != 20 {
		t.Errorf("unexpected usage: %+v", resp)
	}
}

func TestChatModel_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}))
	defer server.Close()

	_, err := newTestChatModel(server.URL).Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChatModel_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	if err := newTestChatModel(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
