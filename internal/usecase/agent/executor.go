// Package agent runs a stage as a bounded tool-calling conversation with the chat model.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/logger"
)

// DefaultMaxToolRounds bounds the model round-trips per stage.
const DefaultMaxToolRounds = 6

const lastRoundNote = "[System note: You have one remaining tool round. " +
	"Write your final answer now using the information already gathered. " +
	"Do not make additional tool calls unless absolutely critical.]"

// Compile-time check: Executor implements domain.Executor.
var _ domain.Executor = (*Executor)(nil)

// Tools resolves and invokes the tools an agent is allowed to use.
type Tools interface {
	Specs(names []string) ([]domain.ToolSpec, error)
	Call(ctx context.Context, name, arguments string) (string, error)
}

// Executor is the built-in domain.Executor.
type Executor struct {
	model     domain.ChatModel
	tools     Tools
	maxRounds int
}

// New creates an executor. maxRounds <= 0 selects DefaultMaxToolRounds.
func New(model domain.ChatModel, tools Tools, maxRounds int) *Executor {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	return &Executor{model: model, tools: tools, maxRounds: maxRounds}
}

// Run converses with the model until it answers without tool calls or the round
// budget runs out. The result document carries final_answer when the model
// answered, and raw (the last assistant text) whenever any text was produced.
func (e *Executor) Run(ctx context.Context, stage domain.Stage) (domain.StageResult, error) {
	log := logger.FromContext(ctx).With(zap.String("stage", stage.Name))

	specs, err := e.tools.Specs(stage.Agent.Tools)
	if err != nil {
		return domain.StageResult{}, fmt.Errorf("resolve tools: %w: %w", domain.ErrExecutorFailed, err)
	}

	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: SystemPrompt(stage.Agent)},
		{Role: domain.RoleUser, Content: TaskPrompt(stage)},
	}

	var out domain.StageOutput
	for round := 0; round < e.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return domain.StageResult{}, fmt.Errorf("%w: %w", domain.ErrExecutorFailed, err)
		}

		resp, err := e.model.Chat(ctx, domain.ChatRequest{Messages: messages, Tools: specs})
		if err != nil {
			return domain.StageResult{}, fmt.Errorf("round %d: %w: %w", round+1, domain.ErrExecutorFailed, err)
		}
		out.Rounds = round + 1

		msg := resp.Message
		hasText := strings.TrimSpace(msg.Content) != ""
		if hasText {
			out.Raw = msg.Content
		}
		if len(msg.ToolCalls) == 0 {
			if hasText {
				answer := msg.Content
				out.FinalAnswer = &answer
			}
			break
		}

		msg.Role = domain.RoleAssistant
		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, domain.ChatMessage{
				Role:       domain.RoleTool,
				ToolCallID: call.ID,
				Content:    e.callTool(ctx, log, call),
			})
			out.ToolCalls++
		}

		if round == e.maxRounds-2 {
			messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: lastRoundNote})
		}
	}

	if out.FinalAnswer == nil {
		log.Warn("Agent stopped without a final answer",
			zap.Int("rounds", out.Rounds),
			zap.Bool("has_raw", out.Raw != ""),
		)
	}

	res, err := domain.NewStageResult(stage.Name, out)
	if err != nil {
		return domain.StageResult{}, fmt.Errorf("encode stage output: %w: %w", domain.ErrExecutorFailed, err)
	}
	return res, nil
}

// callTool runs one tool call. Failures go back to the model as text.
func (e *Executor) callTool(ctx context.Context, log *zap.Logger, call domain.ToolCall) string {
	result, err := e.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		log.Warn("Tool execution failed", zap.String("tool", call.Name), zap.Error(err))
		return fmt.Sprintf("Tool %s failed: %v", call.Name, err)
	}
	log.Debug("Tool executed", zap.String("tool", call.Name), zap.Int("result_len", len(result)))
	return result
}

// SystemPrompt frames the agent identity.
func SystemPrompt(a domain.AgentProfile) string {
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s", a.Role, a.Backstory, a.Goal)
}

// TaskPrompt states the stage instruction and, when set, the expected output.
func TaskPrompt(s domain.Stage) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(s.Instruction)
	if s.ExpectedOutput != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(s.ExpectedOutput)
	}
	b.WriteString("\n\nYou MUST return the actual complete content as the final answer, not a summary.")
	return b.String()
}
