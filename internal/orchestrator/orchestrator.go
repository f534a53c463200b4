package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydeck/querydeck/internal/agent"
	"github.com/querydeck/querydeck/internal/db"
	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/memory"
	"github.com/querydeck/querydeck/internal/observability"
)

const defaultFinalAnswer = "I have completed the request."

type ChartSpec struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Output is the packaged terminal result of one orchestrated run.
// Artifact fields carry whatever the completed steps accumulated,
// regardless of whether every optional step ran.
type Output struct {
	Content         string     `json:"content,omitempty"`
	Err             string     `json:"error,omitempty"`
	IsClarification bool       `json:"is_clarification,omitempty"`
	Table           *db.Table  `json:"table,omitempty"`
	SQL             string     `json:"sql_query,omitempty"`
	AnalysisText    string     `json:"analysis_text,omitempty"`
	Chart           *ChartSpec `json:"chart_config,omitempty"`
}

// SQLRunner is the data-retrieval step; satisfied by *agent.Workflow.
type SQLRunner interface {
	Run(ctx context.Context, question string, convo memory.WorkingContext) (agent.RunResult, error)
}

// Orchestrator sequences specialized steps by repeatedly asking a
// classifier which action to take next, until a terminal action or
// sub-step failure ends the run.
type Orchestrator struct {
	router    llm.Generator
	sqlRunner SQLRunner
	maxSteps  int
	logger    *slog.Logger
}

// New builds an orchestrator. maxSteps bounds the router loop; a
// classifier that never finishes would otherwise loop forever. Zero
// disables the bound.
func New(router llm.Generator, sqlRunner SQLRunner, maxSteps int, logger *slog.Logger) (*Orchestrator, error) {
	if router == nil {
		return nil, fmt.Errorf("router generator is required")
	}
	if sqlRunner == nil {
		return nil, fmt.Errorf("sql runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		router:    router,
		sqlRunner: sqlRunner,
		maxSteps:  maxSteps,
		logger:    logger,
	}, nil
}

// runState is scoped to one Run and discarded at return.
type runState struct {
	prompt string
	convo  memory.WorkingContext

	table        *db.Table
	sql          string
	analysisText string
	chart        *ChartSpec

	clarification string
}

// Run drives the router loop to a terminal node and returns the
// packaged output. The error return is reserved for a router that
// violates its structured-output contract or an SQL runner defect;
// expected outcomes (including sub-step errors) are packaged in Output.
func (o *Orchestrator) Run(ctx context.Context, prompt string, convo memory.WorkingContext) (Output, error) {
	if strings.TrimSpace(prompt) == "" {
		return Output{}, fmt.Errorf("prompt is required")
	}

	state := &runState{prompt: prompt, convo: convo}

	for step := 1; ; step++ {
		if o.maxSteps > 0 && step > o.maxSteps {
			o.logger.Error("router exceeded step budget", slog.Int("max_steps", o.maxSteps))
			return Output{Err: fmt.Sprintf("the request could not be completed within %d steps", o.maxSteps)}, nil
		}

		action, err := o.routeStep(ctx, state)
		if err != nil {
			return Output{}, err
		}
		observability.ObserveRouterStep(string(action.Action))
		o.logger.Info("router decision", slog.Int("step", step), slog.String("action", string(action.Action)))

		switch action.Action {
		case ActionRunSQL:
			output, done, err := o.sqlStep(ctx, state)
			if err != nil {
				return Output{}, err
			}
			if done {
				return output, nil
			}
		case ActionRunAnalysis:
			// Placeholder step until a real analysis agent lands.
			state.analysisText = "This is a placeholder analysis."
		case ActionRunChart:
			// Placeholder step until a real chart agent lands.
			state.chart = &ChartSpec{Type: "bar", Title: "Placeholder Chart"}
		case ActionAskClarification:
			return Output{Content: action.Question, IsClarification: true}, nil
		case ActionFinish:
			answer := strings.TrimSpace(action.Answer)
			if answer == "" {
				answer = defaultFinalAnswer
			}
			return Output{
				Content:      answer,
				Table:        state.table,
				SQL:          state.sql,
				AnalysisText: state.analysisText,
				Chart:        state.chart,
			}, nil
		default:
			// Validate() guarantees a known kind; reaching here is a bug.
			return Output{}, fmt.Errorf("unhandled router action %q", action.Action)
		}
	}
}

func (o *Orchestrator) routeStep(ctx context.Context, state *runState) (RouterAction, error) {
	var action RouterAction
	if err := o.router.GenerateStructured(ctx, routerPrompt(state), &action); err != nil {
		return RouterAction{}, fmt.Errorf("route next step: %w", err)
	}
	return action, nil
}

// sqlStep runs the SQL workflow and maps its terminal status onto the
// router transition table: success re-enters the router, clarification
// and error are terminal.
func (o *Orchestrator) sqlStep(ctx context.Context, state *runState) (Output, bool, error) {
	result, err := o.sqlRunner.Run(ctx, state.prompt, state.convo)
	if err != nil {
		return Output{}, false, fmt.Errorf("run sql step: %w", err)
	}

	switch result.Status {
	case agent.StatusSuccess:
		table := result.Table
		state.table = &table
		state.sql = result.SQL
		return Output{}, false, nil
	case agent.StatusClarification:
		state.clarification = result.Question
		return Output{Content: result.Question, IsClarification: true}, true, nil
	default:
		return Output{Err: result.Reason}, true, nil
	}
}

func routerPrompt(state *runState) llm.Prompt {
	dataSummary := "No"
	if state.table != nil {
		dataSummary = fmt.Sprintf("Yes, with %d rows and columns: %v", state.table.RowCount(), state.table.Columns)
	}
	analysisDone := "No"
	if state.analysisText != "" {
		analysisDone = "Yes"
	}
	chartDone := "No"
	if state.chart != nil {
		chartDone = "Yes"
	}

	system := `You are the project manager of a data assistant. Decide the single next action and respond with a JSON object:
- {"action":"run_sql"} to retrieve data for the user's question. Almost always the first step.
- {"action":"run_analysis","data_summary":"<brief summary>"} to analyze retrieved data.
- {"action":"run_chart","data_summary":"<brief summary>"} only if the user explicitly asked for a chart, plot, or visualization.
- {"action":"ask_clarification","question":"<one concise question>"} when the request is too vague to proceed.
- {"action":"finish","answer":"<final answer summarizing the findings>"} once the request is fully satisfied.`

	user := fmt.Sprintf(
		"User's original request: %q\n\nCurrent state:\n- Data retrieved: %s\n- Analysis performed: %s\n- Chart generated: %s\n\nChoose the next action.",
		state.prompt, dataSummary, analysisDone, chartDone,
	)
	return llm.Prompt{System: system, User: user}
}
