package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed caller request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrStageOutputMissing signals a stage result without an extractable answer.
	ErrStageOutputMissing = errors.New("stage output missing")
	// ErrExecutorFailed signals that the agent executor could not produce a stage result.
	ErrExecutorFailed = errors.New("executor failed")
	// ErrSearchTransient signals a retryable search failure (network, 429, 5xx, bad shape).
	ErrSearchTransient = errors.New("search transient failure")
	// ErrSearchPermanent signals a search failure that retrying cannot fix.
	ErrSearchPermanent = errors.New("search permanent failure")
	// ErrInvalidCAGRInput signals arguments for which CAGR is undefined.
	ErrInvalidCAGRInput = errors.New("invalid CAGR input")
	// ErrTokenBudgetExceeded signals an exhausted LLM token budget.
	ErrTokenBudgetExceeded = errors.New("llm token budget exceeded")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
)

// StageError attributes a pipeline failure to the stage that caused it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error { return e.Err }
