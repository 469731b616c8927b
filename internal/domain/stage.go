package domain

import (
	"context"
	"encoding/json"
)

// AgentProfile is the static framing of the agent assigned to a stage.
type AgentProfile struct {
	Role      string
	Goal      string
	Backstory string
	// Tools names the tools the agent may call; names resolve against the tool registry.
	Tools []string
}

// Stage is one ordered unit of pipeline work.
type Stage struct {
	Name           string
	Instruction    string
	ExpectedOutput string
	Agent          AgentProfile
}

// StageResult is the opaque document an executor returns for a stage.
// Output is a JSON object; extractors read named fields out of it.
type StageResult struct {
	Stage  string
	Output json.RawMessage
}

// StageOutput is the document shape produced by the built-in agent executor.
type StageOutput struct {
	FinalAnswer *string `json:"final_answer,omitempty"`
	Raw         string  `json:"raw,omitempty"`
	ToolCalls   int     `json:"tool_calls"`
	Rounds      int     `json:"rounds"`
}

// NewStageResult encodes out as the result document for stage.
func NewStageResult(stage string, out StageOutput) (StageResult, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Stage: stage, Output: data}, nil
}

// Executor runs a single stage to completion. It is the boundary to the agent framework.
type Executor interface {
	Run(ctx context.Context, stage Stage) (StageResult, error)
}
