// Package rag implements the retrieval-augmented query and ingestion
// service: embed, search, build context, and complete.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livingtwin/ragsvc/internal/apperr"
	"github.com/livingtwin/ragsvc/internal/chunker"
	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
)

// Options configures a Service.
type Options struct {
	TopK          int
	SearchTimeout time.Duration
	RagOnly       bool
	Chunking      chunker.Options
}

// DefaultOptions returns sane defaults for top-k retrieval, search timeout,
// and chunking.
func DefaultOptions() Options {
	return Options{
		TopK:          5,
		SearchTimeout: 5 * time.Second,
		Chunking:      chunker.DefaultOptions(),
	}
}

const defaultSystemPrompt = `You are a helpful assistant answering questions using only the provided context.
Cite sources by their bracketed number, e.g. [1]. If the context is insufficient, say so plainly.`

// Service orchestrates embed -> search -> chat for a single tenant-scoped
// question, and the ingest-time chunk -> embed -> upsert path.
type Service struct {
	embedder ports.Embedder
	chat     ports.ChatModel
	store    ports.VectorStore
	opts     Options
}

// New creates a RagService.
func New(embedder ports.Embedder, chat ports.ChatModel, store ports.VectorStore, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	return &Service{embedder: embedder, chat: chat, store: store, opts: opts}
}

// Answer is the result of a Query.
type Answer struct {
	Text       string
	Sources    []domain.SearchHit
	Confidence float32
}

// Query embeds the question, searches the tenant's chunks, and asks the
// chat model to answer from the retrieved context using the default system
// prompt. contextLimit caps the number of chunks retrieved; a non-positive
// value falls back to the service's configured TopK.
func (s *Service) Query(ctx context.Context, tenant domain.TenantID, question string, contextLimit int) (Answer, error) {
	return s.QueryWithPrompt(ctx, tenant, defaultSystemPrompt, question, contextLimit)
}

// QueryWithPrompt is Query with a caller-supplied system prompt, used by
// internal/convrag to layer conversational continuity instructions on top
// of the base retrieval behaviour.
func (s *Service) QueryWithPrompt(ctx context.Context, tenant domain.TenantID, systemPrompt, question string, contextLimit int) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, apperr.Field(apperr.KindValidation, "question", "must not be empty")
	}
	if contextLimit <= 0 {
		contextLimit = s.opts.TopK
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: embed question: %w", err))
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()
	hits, err := s.store.Search(searchCtx, tenant, embedding, contextLimit)
	if err != nil {
		return Answer{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: search: %w", err))
	}

	contextParts, confidence := buildContext(hits)

	var answerText string
	if s.opts.RagOnly {
		answerText = renderRagOnly(contextParts)
	} else {
		userPrompt := buildUserPrompt(question, contextParts)
		answerText, err = s.chat.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			return Answer{}, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: chat: %w", err))
		}
	}

	return Answer{Text: answerText, Sources: hits, Confidence: confidence}, nil
}

// DebugQuery returns the raw retrieved hits with their text truncated to
// 200 characters, matching the original service's debug_query behaviour.
func (s *Service) DebugQuery(ctx context.Context, tenant domain.TenantID, question string) ([]domain.SearchHit, error) {
	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: debug: embed: %w", err))
	}
	hits, err := s.store.Search(ctx, tenant, embedding, s.opts.TopK)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: debug: search: %w", err))
	}
	for i, h := range hits {
		if r := []rune(h.Text); len(r) > 200 {
			hits[i].Text = string(r[:200]) + "..."
		}
	}
	return hits, nil
}

// IngestText chunks raw text, embeds each chunk, and upserts them as a new
// Source. It returns the resulting chunk count alongside the source.
func (s *Service) IngestText(ctx context.Context, tenant domain.TenantID, title, text string) (domain.Source, int, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Source{}, 0, apperr.Field(apperr.KindValidation, "text", "must not be empty")
	}

	source := domain.Source{
		ID:        uuid.NewString(),
		TenantID:  tenant,
		Title:     title,
		Kind:      "text",
		CreatedAt: time.Now().UTC(),
	}

	windows := chunker.ByChars(text, s.opts.Chunking)
	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			ID:       uuid.NewString(),
			SourceID: source.ID,
			TenantID: tenant,
			Index:    i,
			Text:     w,
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.Source{}, 0, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: ingest: embed: %w", err))
	}
	for i, e := range embeddings {
		chunks[i].Embedding = e
	}

	if err := s.store.UpsertChunks(ctx, source, chunks); err != nil {
		return domain.Source{}, 0, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: ingest: upsert: %w", err))
	}
	return source, len(chunks), nil
}

// GetRecentDocuments returns the tenant's most recently ingested sources.
func (s *Service) GetRecentDocuments(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.Source, error) {
	sources, err := s.store.GetRecentSources(ctx, tenant, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, fmt.Errorf("rag: recent documents: %w", err))
	}
	return sources, nil
}

func buildContext(hits []domain.SearchHit) ([]string, float32) {
	if len(hits) == 0 {
		return nil, 0
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, h.Text)
	}
	top := hits[0].Score
	if top < 0 {
		top = 0
	}
	if top > 1 {
		top = 1
	}
	return parts, top
}

func renderRagOnly(parts []string) string {
	if len(parts) == 0 {
		return "No relevant context was found for this question."
	}
	n := len(parts)
	if n > 3 {
		n = 3
	}
	return "RAG_ONLY mode: returning top snippets only.\n" + strings.Join(parts[:n], "\n")
}

func buildUserPrompt(question string, contextParts []string) string {
	if len(contextParts) == 0 {
		return fmt.Sprintf("Question: %s\n\n(No matching context was found.)", question)
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(contextParts, "\n\n"), question)
}
