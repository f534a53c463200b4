package agent

import (
	"fmt"
	"strings"

	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/memory"
)

const generationSystemPrompt = `You convert natural language questions into a single read-only SQL query for the %s dialect.

Respond with a JSON object holding exactly one of three shapes, discriminated by "status":
- {"status":"success","query":"<the SQL SELECT statement>"} when a query can be written.
- {"status":"error","reason":"<why no query is possible>"} when the schema cannot answer the question.
- {"status":"clarification","clarification_question":"<one concise question>"} when the request is ambiguous.

Rules:
- Use only tables and columns from the schema below.
- Generate exactly one SELECT statement. Never modify data.
- If a previous attempt failed, fix the reported execution error instead of repeating the query.

Schema:
%s`

func generationPrompt(dialect, schemaInfo, question string, attempts []AttemptRecord, convo memory.WorkingContext) llm.Prompt {
	var user strings.Builder
	fmt.Fprintf(&user, "Question:\n%s\n", question)

	if strings.TrimSpace(convo.Summary) != "" {
		fmt.Fprintf(&user, "\nConversation summary:\n%s\n", convo.Summary)
	}

	user.WriteString("\nRecent exchanges:\n")
	if len(convo.History) == 0 {
		user.WriteString("No previous conversation history.\n")
	} else {
		for _, pair := range convo.History {
			fmt.Fprintf(&user, "Human: %s\nAI: %s\n", pair.Human, pair.AI)
		}
	}

	if len(attempts) > 0 {
		user.WriteString("\nPrevious attempts for this question:\n")
		for _, record := range attempts {
			user.WriteString(record.render())
			user.WriteString("\n")
		}
	}

	return llm.Prompt{
		System: fmt.Sprintf(generationSystemPrompt, dialect, schemaInfo),
		User:   user.String(),
	}
}
