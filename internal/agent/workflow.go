package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/db"
	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/memory"
	"github.com/querydeck/querydeck/internal/observability"
)

// Workflow drives the generate → execute → retry loop for one question.
// Execution failures are retried up to maxAttempts; generation errors
// and ambiguity terminate immediately.
type Workflow struct {
	generator   llm.Generator
	executor    db.Executor
	maxAttempts int
	logger      *slog.Logger
}

func NewWorkflow(generator llm.Generator, executor db.Executor, maxAttempts int, logger *slog.Logger) (*Workflow, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be >= 1")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		generator:   generator,
		executor:    executor,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// RunResult is the classified terminal outcome of one Run. Exactly one
// of the payload groups is meaningful, matching Status: Table+SQL for
// success, Reason for error, Question for clarification.
type RunResult struct {
	Status   OutcomeStatus
	Table    db.Table
	SQL      string
	Reason   string
	Question string
}

// runState is scoped to one Run invocation and discarded at return.
type runState struct {
	question   string
	convo      memory.WorkingContext
	schemaInfo string

	attempts []AttemptRecord
	attempt  int
	latest   GenerationOutcome

	execError string
	table     db.Table
	sql       string
}

type retryDecision string

const (
	decisionRetry retryDecision = "retry"
	decisionEnd   retryDecision = "end"
)

// Run drives the loop to a terminal state and classifies it. The error
// return is reserved for defects: empty input, a schema introspection
// failure, or a generation port violating its contract. Expected
// domain outcomes (ambiguity, refusal, exhausted retries) come back in
// RunResult, never as errors.
func (w *Workflow) Run(ctx context.Context, question string, convo memory.WorkingContext) (RunResult, error) {
	if strings.TrimSpace(question) == "" {
		return RunResult{}, fmt.Errorf("question is required")
	}

	schemaInfo, err := w.executor.SchemaInfo(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("load schema context: %w", err)
	}

	state := &runState{
		question:   question,
		convo:      convo,
		schemaInfo: schemaInfo,
	}

	for {
		if err := w.generateStep(ctx, state); err != nil {
			return RunResult{}, err
		}
		if err := w.executeStep(ctx, state); err != nil {
			return RunResult{}, err
		}
		if w.decide(state) == decisionEnd {
			break
		}
		w.logger.Info("execution failed, retrying generation",
			slog.Int("attempt", state.attempt),
			slog.String("exec_error", state.execError))
	}

	result := classify(state)
	observability.ObserveWorkflowRun(string(result.Status))
	return result, nil
}

func (w *Workflow) generateStep(ctx context.Context, state *runState) error {
	w.logger.Info("generating sql",
		slog.Int("attempt", state.attempt+1),
		slog.Int("max_attempts", w.maxAttempts))

	prompt := generationPrompt(w.executor.Dialect(), state.schemaInfo, state.question, state.attempts, state.convo)

	start := time.Now()
	var outcome GenerationOutcome
	if err := w.generator.GenerateStructured(ctx, prompt, &outcome); err != nil {
		// A port that cannot produce a well-formed outcome is a defect
		// in the collaborator, not a retryable condition.
		return fmt.Errorf("generate sql outcome: %w", err)
	}
	observability.ObserveGenerationAttempt(string(outcome.Status), time.Since(start))

	state.attempt++
	state.latest = outcome
	state.attempts = append(state.attempts, AttemptRecord{
		Attempt: state.attempt,
		Status:  outcome.Status,
		Detail:  detailFor(outcome),
	})
	return nil
}

func (w *Workflow) executeStep(ctx context.Context, state *runState) error {
	if state.latest.Status != StatusSuccess {
		w.logger.Warn("skipping sql execution",
			slog.String("generation_status", string(state.latest.Status)))
		return nil
	}

	sqlText := strings.TrimSpace(state.latest.Query)
	table, err := w.executor.Execute(ctx, sqlText)
	if err != nil {
		var execErr *db.ExecutionError
		if errors.As(err, &execErr) {
			state.execError = execErr.Message
			state.table = db.Table{}
			state.attempts[len(state.attempts)-1].ExecError = execErr.Message
			w.logger.Error("sql execution failed", slog.String("error", execErr.Message))
			return nil
		}
		return fmt.Errorf("execute sql: %w", err)
	}

	state.table = table
	state.sql = sqlText
	state.execError = ""
	w.logger.Info("sql executed", slog.Int("rows", table.RowCount()))
	return nil
}

// decide is a pure function of run state.
func (w *Workflow) decide(state *runState) retryDecision {
	if state.latest.Status != StatusSuccess {
		return decisionEnd
	}
	if state.execError == "" {
		return decisionEnd
	}
	if state.attempt >= w.maxAttempts {
		w.logger.Warn("max attempts reached", slog.Int("attempts", state.attempt))
		return decisionEnd
	}
	return decisionRetry
}

func classify(state *runState) RunResult {
	switch state.latest.Status {
	case StatusSuccess:
		if state.execError != "" {
			return RunResult{
				Status: StatusError,
				Reason: fmt.Sprintf("SQL execution failed after %d attempts: %s", state.attempt, state.execError),
			}
		}
		return RunResult{Status: StatusSuccess, Table: state.table, SQL: state.sql}
	case StatusClarification:
		return RunResult{Status: StatusClarification, Question: state.latest.ClarificationQuestion}
	default:
		return RunResult{Status: StatusError, Reason: state.latest.Reason}
	}
}
