// Package domain defines the core entities shared across the ingest/query
// pipeline, the job manager, and the event bus.
package domain

import "time"

// TenantID identifies an organisation's isolated data partition.
type TenantID string

// DemoTenant is the fallback tenant used when a stored node carries no
// explicit tenantId, matching the legacy data this service was built to
// keep serving.
const DemoTenant TenantID = "demo"

// UserContext describes the authenticated caller of a request.
type UserContext struct {
	UserID   string
	TenantID TenantID
	Role     string // "owner" grants cross-tenant access, see internal/authz
}

// Source is a top-level ingested document (a file or a block of raw text).
type Source struct {
	ID        string
	TenantID  TenantID
	Title     string
	Kind      string // "text", "pdf", "docx", ...
	CreatedAt time.Time
}

// Chunk is one windowed slice of a Source's text, with its embedding.
type Chunk struct {
	ID        string
	SourceID  string
	TenantID  TenantID
	Index     int
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchHit is a single scored retrieval result.
type SearchHit struct {
	ChunkID  string
	SourceID string
	Source   string
	Text     string
	Score    float32
	Metadata map[string]string
}

// Conversation groups an ordered sequence of Messages for one tenant/user.
type Conversation struct {
	ID        string
	TenantID  TenantID
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn in a Conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	Metadata       map[string]any
	Timestamp      time.Time
}

// JobStatus is the lifecycle state of an IngestJob.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IngestJob tracks the asynchronous ingestion of one document.
type IngestJob struct {
	ID         string
	TenantID   TenantID
	UserID     string
	Title      string
	Status     JobStatus
	SourceID   string
	ChunkCount int
	DurationMs int64
	Error      string
	CreatedAt  time.Time
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// EventType enumerates the domain event families this service emits.
type EventType string

const (
	EventDocumentIngested EventType = "document.ingested"
	EventDocumentUpdated  EventType = "document.updated"
	EventDocumentDeleted  EventType = "document.deleted"
	EventQueryExecuted    EventType = "query.executed"
	EventQueryFailed      EventType = "query.failed"
	EventUserRegistered   EventType = "user.registered"
	EventUserLogin        EventType = "user.login"
	EventSystemError      EventType = "system.error"
	EventSystemHealth     EventType = "system.health_check"
)

// DomainEvent is the envelope published on the event bus.
type DomainEvent struct {
	EventID        string
	EventType      EventType
	TenantID       TenantID
	UserID         string
	CorrelationID  string
	IdempotencyKey string
	RetryCount     int
	OccurredAt     time.Time
	Payload        map[string]any
}

// RateLimitWindow names one of the fixed windows a tenant is metered on.
type RateLimitWindow string

const (
	WindowMinute RateLimitWindow = "minute"
	WindowHour   RateLimitWindow = "hour"
	WindowDay    RateLimitWindow = "day"
)

// TenantLimits are the quotas enforced for a tenant.
type TenantLimits struct {
	MaxDocuments      int
	MaxQueriesPerHour int
	MaxChunkSize      int
}

// DefaultTenantLimits mirrors the original service's fixed defaults.
var DefaultTenantLimits = TenantLimits{
	MaxDocuments:      10000,
	MaxQueriesPerHour: 1000,
	MaxChunkSize:      2000,
}
