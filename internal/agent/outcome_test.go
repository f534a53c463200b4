package agent

import (
	"strings"
	"testing"
)

func TestValidateAcceptsWellFormedOutcomes(t *testing.T) {
	outcomes := []GenerationOutcome{
		{Status: StatusSuccess, Query: "SELECT 1"},
		{Status: StatusError, Reason: "no matching table"},
		{Status: StatusClarification, ClarificationQuestion: "which year?"},
	}
	for _, outcome := range outcomes {
		if err := outcome.Validate(); err != nil {
			t.Fatalf("Validate(%s) error = %v", outcome.Status, err)
		}
	}
}

func TestValidateRejectsMissingPayload(t *testing.T) {
	outcomes := []GenerationOutcome{
		{Status: StatusSuccess},
		{Status: StatusSuccess, Query: "   "},
		{Status: StatusError},
		{Status: StatusClarification},
	}
	for _, outcome := range outcomes {
		if err := outcome.Validate(); err == nil {
			t.Fatalf("Validate(%s) expected error for missing payload", outcome.Status)
		}
	}
}

func TestValidateRejectsCrossPopulatedFields(t *testing.T) {
	outcomes := []GenerationOutcome{
		{Status: StatusSuccess, Query: "SELECT 1", Reason: "also a reason"},
		{Status: StatusError, Reason: "r", ClarificationQuestion: "q"},
		{Status: StatusClarification, ClarificationQuestion: "q", Query: "SELECT 1"},
	}
	for _, outcome := range outcomes {
		if err := outcome.Validate(); err == nil {
			t.Fatalf("Validate(%s) expected error for cross-populated fields", outcome.Status)
		}
	}
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	outcome := GenerationOutcome{Status: "maybe", Query: "SELECT 1"}
	if err := outcome.Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestAttemptRecordRender(t *testing.T) {
	record := AttemptRecord{
		Attempt:   2,
		Status:    StatusSuccess,
		Detail:    "SQL:\nSELECT * FROM orders",
		ExecError: `relation "orders" does not exist`,
	}
	rendered := record.render()
	for _, want := range []string{"ATTEMPT 2 - Status: success", "SELECT * FROM orders", "Execution error:"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("render() missing %q:\n%s", want, rendered)
		}
	}
}
