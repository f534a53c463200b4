package agent

import (
	"fmt"
	"strings"
)

type OutcomeStatus string

const (
	StatusSuccess       OutcomeStatus = "success"
	StatusError         OutcomeStatus = "error"
	StatusClarification OutcomeStatus = "clarification"
)

// GenerationOutcome is the structured result of one SQL generation
// attempt. Exactly one payload field is populated, matching Status.
type GenerationOutcome struct {
	Status                OutcomeStatus `json:"status"`
	Query                 string        `json:"query,omitempty"`
	Reason                string        `json:"reason,omitempty"`
	ClarificationQuestion string        `json:"clarification_question,omitempty"`
}

// Validate enforces the tagged-union invariant at construction time. A
// violation means the generation port broke its contract; it is never a
// retryable runtime condition.
func (o *GenerationOutcome) Validate() error {
	switch o.Status {
	case StatusSuccess:
		if strings.TrimSpace(o.Query) == "" {
			return fmt.Errorf(`field "query" is required when status is %q`, StatusSuccess)
		}
		if o.Reason != "" || o.ClarificationQuestion != "" {
			return fmt.Errorf("only the query field may be set when status is %q", StatusSuccess)
		}
	case StatusError:
		if strings.TrimSpace(o.Reason) == "" {
			return fmt.Errorf(`field "reason" is required when status is %q`, StatusError)
		}
		if o.Query != "" || o.ClarificationQuestion != "" {
			return fmt.Errorf("only the reason field may be set when status is %q", StatusError)
		}
	case StatusClarification:
		if strings.TrimSpace(o.ClarificationQuestion) == "" {
			return fmt.Errorf(`field "clarification_question" is required when status is %q`, StatusClarification)
		}
		if o.Query != "" || o.Reason != "" {
			return fmt.Errorf("only the clarification_question field may be set when status is %q", StatusClarification)
		}
	default:
		return fmt.Errorf("unknown outcome status %q", o.Status)
	}
	return nil
}

// AttemptRecord is an immutable log entry for one generation attempt.
// Records are rendered into the next attempt's prompt context and are
// never parsed programmatically.
type AttemptRecord struct {
	Attempt   int
	Status    OutcomeStatus
	Detail    string
	ExecError string
}

func (r AttemptRecord) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ATTEMPT %d - Status: %s", r.Attempt, r.Status)
	if r.Detail != "" {
		fmt.Fprintf(&b, "\n%s", r.Detail)
	}
	if r.ExecError != "" {
		fmt.Fprintf(&b, "\nExecution error:\n%s", r.ExecError)
	}
	return b.String()
}

func detailFor(outcome GenerationOutcome) string {
	switch outcome.Status {
	case StatusSuccess:
		return "SQL:\n" + outcome.Query
	case StatusError:
		return "Reason:\n" + outcome.Reason
	case StatusClarification:
		return "Clarification:\n" + outcome.ClarificationQuestion
	default:
		return ""
	}
}
