// Package convrag implements multi-turn conversational RAG, grounded on the
// original domain/conversational_service.py.
package convrag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/livingtwin/ragsvc/internal/apperr"
	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/internal/rag"
)

const historyWindow = 6     // messages considered when building contextual query
const answerWindow = 4      // messages considered when generating the answer
const defaultMemoryWindow = 10

const conversationalSystemPrompt = `You are a helpful assistant continuing an ongoing conversation.
Answer using only the provided context, citing sources by bracketed number, e.g. [1].
Maintain continuity with the prior turns. If the context is insufficient, say so plainly.`

// Service layers conversation memory on top of rag.Service.
type Service struct {
	rag     *rag.Service
	convos  ports.ConversationStore
	ragOnly bool
}

// New creates a ConversationalRagService.
func New(ragSvc *rag.Service, convos ports.ConversationStore, ragOnly bool) *Service {
	return &Service{rag: ragSvc, convos: convos, ragOnly: ragOnly}
}

// Response is the result of a conversational query.
type Response struct {
	ConversationID string
	Answer         string
	Sources        []domain.SearchHit
	Confidence     float32
}

// Query answers a question within a conversation, creating the conversation
// if conversationID is empty, and persists both the user and assistant
// turns.
func (s *Service) Query(ctx context.Context, caller domain.UserContext, conversationID, question string, memoryWindow int) (Response, error) {
	if strings.TrimSpace(question) == "" {
		return Response{}, apperr.Field(apperr.KindValidation, "question", "must not be empty")
	}

	conv, err := s.resolveConversation(ctx, caller, conversationID, question)
	if err != nil {
		return Response{}, err
	}

	if memoryWindow <= 0 {
		memoryWindow = defaultMemoryWindow
	}
	history, err := s.convos.GetHistory(ctx, conv.ID, memoryWindow)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("convrag: history: %w", err))
	}

	contextualQuery := buildContextualQuery(history, question)
	systemPrompt := buildSystemPrompt(history, s.ragOnly)

	answer, err := s.rag.QueryWithPrompt(ctx, caller.TenantID, systemPrompt, contextualQuery, 0)
	if err != nil {
		return Response{}, err
	}

	if _, err := s.convos.AppendMessage(ctx, domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           "user",
		Content:        question,
	}); err != nil {
		return Response{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("convrag: persist user message: %w", err))
	}

	if _, err := s.convos.AppendMessage(ctx, domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        answer.Text,
		Metadata: map[string]any{
			"sources":      answer.Sources,
			"confidence":   answer.Confidence,
			"context_used": len(answer.Sources),
		},
	}); err != nil {
		return Response{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("convrag: persist assistant message: %w", err))
	}

	return Response{
		ConversationID: conv.ID,
		Answer:         answer.Text,
		Sources:        answer.Sources,
		Confidence:     answer.Confidence,
	}, nil
}

func (s *Service) resolveConversation(ctx context.Context, caller domain.UserContext, conversationID, question string) (domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.convos.GetConversation(ctx, caller.TenantID, conversationID)
		if err != nil {
			return domain.Conversation{}, apperr.Wrap(apperr.KindNotFound, fmt.Errorf("convrag: get conversation: %w", err))
		}
		return conv, nil
	}

	conv, err := s.convos.CreateConversation(ctx, domain.Conversation{
		ID:       uuid.NewString(),
		TenantID: caller.TenantID,
		UserID:   caller.UserID,
		Title:    titleFromQuestion(question),
	})
	if err != nil {
		return domain.Conversation{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("convrag: create conversation: %w", err))
	}
	return conv, nil
}

// titleFromQuestion truncates the opening question to its first six words,
// matching the original's default conversation title, appending an ellipsis
// when the question ran longer.
func titleFromQuestion(question string) string {
	words := strings.Fields(question)
	if len(words) == 0 {
		return "New Conversation"
	}
	if len(words) > 6 {
		return strings.Join(words[:6], " ") + "…"
	}
	return strings.Join(words, " ")
}

// buildContextualQuery prefixes the current question with a condensed
// transcript of the last three exchanges (six messages), so the embedder
// and search see the conversation's drift, not just the bare question.
func buildContextualQuery(history []domain.Message, question string) string {
	if len(history) == 0 {
		return question
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, m := range recent {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	fmt.Fprintf(&b, "\nCurrent question: %s", question)
	return b.String()
}

// buildSystemPrompt appends a condensed transcript of the last two
// exchanges (four messages) to the conversational system prompt, a
// narrower window than buildContextualQuery's six messages — the original
// service uses a shorter slice specifically for answer generation.
func buildSystemPrompt(history []domain.Message, ragOnly bool) string {
	if ragOnly || len(history) == 0 {
		return conversationalSystemPrompt
	}

	recent := history
	if len(recent) > answerWindow {
		recent = recent[len(recent)-answerWindow:]
	}

	var b strings.Builder
	b.WriteString(conversationalSystemPrompt)
	b.WriteString("\n\nRecent exchanges:\n")
	for _, m := range recent {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}
