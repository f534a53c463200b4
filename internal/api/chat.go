package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/memory"
	"github.com/querydeck/querydeck/internal/orchestrator"
)

var conversationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,128}$`)

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Prompt         string `json:"prompt"`
}

type chatResponse struct {
	ConversationID  string                  `json:"conversation_id"`
	Content         string                  `json:"content,omitempty"`
	Error           string                  `json:"error,omitempty"`
	IsClarification bool                    `json:"is_clarification"`
	SQL             string                  `json:"sql_query,omitempty"`
	Columns         []string                `json:"columns,omitempty"`
	Rows            [][]any                 `json:"rows,omitempty"`
	AnalysisText    string                  `json:"analysis_text,omitempty"`
	Chart           *orchestrator.ChartSpec `json:"chart_config,omitempty"`
	ArtifactKey     string                  `json:"artifact_key,omitempty"`
}

type memoryResponse struct {
	ConversationID string        `json:"conversation_id"`
	Summary        string        `json:"summary"`
	Buffer         []memory.Turn `json:"buffer"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil || deps.Conversations == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if !conversationIDPattern.MatchString(request.ConversationID) {
		writeError(r.Context(), w, http.StatusBadRequest, "CONVERSATION_ID_INVALID", "conversation_id must match [A-Za-z0-9._-]{1,128}", false, nil)
		return
	}
	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	conversation, err := deps.Conversations.Get(request.ConversationID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_ERROR", "failed to open conversation", true, map[string]any{"details": err.Error()})
		return
	}

	var output orchestrator.Output
	err = conversation.Do(func(store *memory.Store) error {
		convo := store.ContextForAgent()
		result, runErr := deps.Chat.Run(r.Context(), prompt, convo)
		if runErr != nil {
			return runErr
		}
		output = result

		// A consolidation failure keeps the buffer intact and retries on
		// the next turn; the answer is already in hand, so it is not a
		// reason to fail the request.
		recordTurn(deps, r, store, request.ConversationID, memory.RoleHuman, prompt)
		reply := output.Content
		if reply == "" {
			reply = output.Err
		}
		recordTurn(deps, r, store, request.ConversationID, memory.RoleAI, reply)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "CHAT_FAILED", "chat turn failed", true, map[string]any{"details": err.Error()})
		return
	}

	response := chatResponse{
		ConversationID:  request.ConversationID,
		Content:         output.Content,
		Error:           output.Err,
		IsClarification: output.IsClarification,
		SQL:             output.SQL,
		AnalysisText:    output.AnalysisText,
		Chart:           output.Chart,
	}
	if output.Table != nil {
		response.Columns = output.Table.Columns
		response.Rows = output.Table.Rows
	}
	response.ArtifactKey = exportAnswer(deps, r, request.ConversationID, prompt, output)

	writeJSON(w, http.StatusOK, response)
}

func recordTurn(deps Dependencies, r *http.Request, store *memory.Store, conversationID string, role memory.Role, content string) {
	if err := store.AddMessage(r.Context(), role, content); err != nil && deps.Logger != nil {
		deps.Logger.Warn("failed to record conversation turn",
			slog.String("conversation_id", conversationID),
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
	}
}

// exportAnswer archives a successful data answer. Export failures are
// logged and do not fail the chat turn.
func exportAnswer(deps Dependencies, r *http.Request, conversationID, prompt string, output orchestrator.Output) string {
	if deps.Exporter == nil || output.Table == nil || output.Table.RowCount() == 0 {
		return ""
	}
	result, err := deps.Exporter.Export(r.Context(), export.Answer{
		ConversationID: conversationID,
		Question:       prompt,
		SQL:            output.SQL,
		Table:          *output.Table,
	})
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.Error("answer export failed",
				slog.String("conversation_id", conversationID),
				slog.String("error", err.Error()))
		}
		return ""
	}
	return result.Key
}

func handleConversationMemory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	conversationID := r.PathValue("conversation")
	conversation, ok := deps.Conversations.Lookup(conversationID)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation was not found", false, map[string]any{"conversation_id": conversationID})
		return
	}

	var snapshot memory.Snapshot
	_ = conversation.Do(func(store *memory.Store) error {
		snapshot = store.Snapshot()
		return nil
	})

	buffer := snapshot.Buffer
	if buffer == nil {
		buffer = []memory.Turn{}
	}
	writeJSON(w, http.StatusOK, memoryResponse{
		ConversationID: conversationID,
		Summary:        snapshot.Summary,
		Buffer:         buffer,
	})
}
