// Package ports declares the collaborator interfaces the RAG services are
// built against. Concrete adapters live in sibling packages (internal/embed,
// internal/chat, internal/vectorstore, internal/convstore, internal/jobstore).
package ports

import (
	"context"

	"github.com/livingtwin/ragsvc/internal/domain"
)

// Embedder turns text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// ChatModel produces a completion from a prompt and supporting context.
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VectorStore persists chunks and answers similarity queries, scoped to a
// tenant.
type VectorStore interface {
	UpsertChunks(ctx context.Context, source domain.Source, chunks []domain.Chunk) error
	Search(ctx context.Context, tenant domain.TenantID, embedding []float32, topK int) ([]domain.SearchHit, error)
	GetRecentSources(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.Source, error)
}

// ConversationStore persists multi-turn conversation history.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c domain.Conversation) (domain.Conversation, error)
	GetConversation(ctx context.Context, tenant domain.TenantID, id string) (domain.Conversation, error)
	ListConversations(ctx context.Context, tenant domain.TenantID, userID string) ([]domain.Conversation, error)
	AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	DeleteConversation(ctx context.Context, tenant domain.TenantID, id string) error
}

// JobStore persists the state of asynchronous ingest jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error)
	UpdateJob(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error)
	GetJob(ctx context.Context, tenant domain.TenantID, userID, id string) (domain.IngestJob, error)
	ListJobs(ctx context.Context, tenant domain.TenantID, userID string) ([]domain.IngestJob, error)
}

// EventPublisher publishes a domain event onto the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}
