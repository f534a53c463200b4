package orchestrator

import (
	"fmt"
	"strings"
)

// ActionKind is the closed set of steps the router may pick. Adding a
// kind means extending the switch in Run, checked at compile time by
// the exhaustive default case.
type ActionKind string

const (
	ActionRunSQL           ActionKind = "run_sql"
	ActionRunAnalysis      ActionKind = "run_analysis"
	ActionRunChart         ActionKind = "run_chart"
	ActionAskClarification ActionKind = "ask_clarification"
	ActionFinish           ActionKind = "finish"
)

// RouterAction is the classifier's structured decision. Argument fields
// are action-specific.
type RouterAction struct {
	Action      ActionKind `json:"action"`
	Question    string     `json:"question,omitempty"`
	Answer      string     `json:"answer,omitempty"`
	DataSummary string     `json:"data_summary,omitempty"`
}

func (a *RouterAction) Validate() error {
	switch a.Action {
	case ActionRunSQL, ActionRunAnalysis, ActionRunChart, ActionFinish:
		return nil
	case ActionAskClarification:
		if strings.TrimSpace(a.Question) == "" {
			return fmt.Errorf(`field "question" is required for action %q`, ActionAskClarification)
		}
		return nil
	default:
		return fmt.Errorf("unknown router action %q", a.Action)
	}
}
