package llm

import (
	"context"
	"fmt"
)

// Prompt carries the rendered system and user messages for one generation
// call. Variable substitution happens in the caller; the port only
// transports text.
type Prompt struct {
	System string
	User   string
}

// Validator is implemented by structured-output targets that enforce
// their own construction invariants.
type Validator interface {
	Validate() error
}

// Generator is the text-generation port. GenerateStructured decodes the
// backend's output into out and fails with *DecodeError when the content
// cannot be parsed into the expected shape or violates its invariants.
type Generator interface {
	GenerateText(ctx context.Context, prompt Prompt) (string, error)
	GenerateStructured(ctx context.Context, prompt Prompt, out any) error
}

// DecodeError reports a backend response that violates the declared
// structured-output contract. It is a defect in the collaborator, never
// a retryable condition.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode structured output: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("decode structured output: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
