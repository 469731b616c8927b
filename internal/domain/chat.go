package domain

import (
	"context"
	"encoding/json"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatMessage is one turn of a chat exchange.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolSpec advertises a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ChatRequest is a single chat completion request.
type ChatRequest struct {
	Messages []ChatMessage
	Tools    []ToolSpec
}

// ChatResponse carries the assistant turn and token usage through the decorator chain.
type ChatResponse struct {
	Message          ChatMessage
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatModel is the LLM contract shared between layers.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
