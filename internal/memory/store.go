package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/observability"
)

type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

var ErrInvalidRole = errors.New(`role must be "human" or "ai"`)

// Turn is one exchange unit in the conversation buffer.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Pair is one completed question/answer exchange.
type Pair struct {
	Human string `json:"human"`
	AI    string `json:"ai"`
}

// WorkingContext is the read-only view handed to workflows: the running
// summary plus the buffered turns re-paired in arrival order.
type WorkingContext struct {
	Summary string `json:"summary"`
	History []Pair `json:"chat_history"`
}

// Snapshot is a read-only copy of the store's internal state, exposed
// for debugging instead of letting callers reach into the buffer.
type Snapshot struct {
	Summary string `json:"summary"`
	Buffer  []Turn `json:"message_buffer"`
}

const initialSummary = "This is the beginning of the conversation."

// Store keeps a bounded rolling buffer of turns plus a running summary.
// When the buffer reaches maxBufferSize the turns are consolidated into
// the summary through the summarizer generator, synchronously, before
// AddMessage returns.
//
// A Store is not safe for concurrent use; callers own serialization,
// one store per conversation.
type Store struct {
	summarizer    llm.Generator
	maxBufferSize int
	logger        *slog.Logger

	buffer  []Turn
	summary string
}

func NewStore(summarizer llm.Generator, maxBufferSize int, logger *slog.Logger) (*Store, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if maxBufferSize < 2 {
		return nil, fmt.Errorf("max buffer size must be >= 2")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxBufferSize%2 != 0 {
		logger.Warn("odd max buffer size may consolidate mid-pair",
			slog.Int("max_buffer_size", maxBufferSize))
	}
	return &Store{
		summarizer:    summarizer,
		maxBufferSize: maxBufferSize,
		logger:        logger,
		summary:       initialSummary,
	}, nil
}

// AddMessage appends a turn and consolidates the buffer if it has
// reached the configured threshold. On a consolidation failure the
// buffer is left intact and the error is returned; the next AddMessage
// retries the consolidation.
func (s *Store) AddMessage(ctx context.Context, role Role, content string) error {
	if role != RoleHuman && role != RoleAI {
		return fmt.Errorf("%w: got %q", ErrInvalidRole, role)
	}
	s.buffer = append(s.buffer, Turn{Role: role, Content: content})
	if len(s.buffer) >= s.maxBufferSize {
		return s.consolidate(ctx)
	}
	return nil
}

func (s *Store) consolidate(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}
	s.logger.Info("memory buffer threshold reached, consolidating",
		slog.Int("buffered_turns", len(s.buffer)))

	lines := make([]string, 0, len(s.buffer))
	for _, turn := range s.buffer {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}

	newSummary, err := s.summarizer.GenerateText(ctx, summarizerPrompt(s.summary, strings.Join(lines, "\n")))
	if err != nil {
		return fmt.Errorf("summarize conversation buffer: %w", err)
	}

	s.summary = newSummary
	s.buffer = nil
	observability.ObserveMemoryConsolidation()
	s.logger.Debug("memory consolidated", slog.Int("summary_len", len(newSummary)))
	return nil
}

// ContextForAgent pairs buffered turns into (human, ai) exchanges. A
// trailing human turn with no AI reply yet is omitted from the paired
// view; it joins once its reply arrives.
func (s *Store) ContextForAgent() WorkingContext {
	var pairs []Pair
	var pendingHuman *string
	for _, turn := range s.buffer {
		switch turn.Role {
		case RoleHuman:
			content := turn.Content
			pendingHuman = &content
		case RoleAI:
			if pendingHuman != nil {
				pairs = append(pairs, Pair{Human: *pendingHuman, AI: turn.Content})
				pendingHuman = nil
			}
		}
	}
	return WorkingContext{Summary: s.summary, History: pairs}
}

func (s *Store) Snapshot() Snapshot {
	buffer := make([]Turn, len(s.buffer))
	copy(buffer, s.buffer)
	return Snapshot{Summary: s.summary, Buffer: buffer}
}

func summarizerPrompt(previousSummary, transcript string) llm.Prompt {
	return llm.Prompt{
		System: "You maintain a running summary of a conversation between a user and a data assistant. " +
			"Merge the new exchanges into the previous summary. Keep referenced tables, filters, and " +
			"open follow-ups. Be concise; output only the updated summary.",
		User: fmt.Sprintf("Previous summary:\n%s\n\nNew exchanges:\n%s", previousSummary, transcript),
	}
}
