// Package eventbus implements the tenant-scoped domain event bus, realised
// on NATS JetStream in place of the original GCP Pub/Sub-backed adapter.
// See SPEC_FULL.md section 5.9 for the concept-to-JetStream mapping.
package eventbus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/livingtwin/ragsvc/internal/domain"
)

// AckDeadline is how long a consumer has to ack a delivered message before
// redelivery, matching the original Pub/Sub subscription's 600s deadline.
const AckDeadline = 600 // seconds

// RetentionSeconds is how long a stream retains messages, matching the
// original's 7-day retention.
const RetentionSeconds = 7 * 24 * 60 * 60

// MaxDeliveryAttempts is how many times a message is redelivered before it
// is routed to the dead-letter topic.
const MaxDeliveryAttempts = 5

// topicForEventType maps an event family to its owning topic, mirroring the
// original PubSubBusAdapter's fixed topic set.
func topicForEventType(t domain.EventType) string {
	switch t {
	case domain.EventDocumentIngested, domain.EventDocumentUpdated, domain.EventDocumentDeleted:
		return "document-events"
	case domain.EventQueryExecuted, domain.EventQueryFailed:
		return "query-events"
	case domain.EventUserRegistered, domain.EventUserLogin:
		return "user-events"
	case domain.EventSystemError, domain.EventSystemHealth:
		return "system-events"
	default:
		return "events"
	}
}

// subscriptionName builds the tenant-scoped durable consumer/subscription
// name, matching the original's "<topic>-<tenantId>-<suffix>" convention.
func subscriptionName(topic string, tenant domain.TenantID, suffix string) string {
	return fmt.Sprintf("%s-%s-%s", topic, tenant, suffix)
}

// dlqTopic names the dead-letter topic for a tenant subscription.
func dlqTopic(topic string, tenant domain.TenantID) string {
	return fmt.Sprintf("%s-%s-dlq", topic, tenant)
}

// idempotencyKey is sha256(eventType:tenantId:eventId) truncated to 32 hex
// characters, exactly as the original adapter computes it.
func idempotencyKey(event domain.DomainEvent) string {
	raw := fmt.Sprintf("%s:%s:%s", event.EventType, event.TenantID, event.EventID)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:32]
}

// KeyStore deduplicates events by idempotency key.
type KeyStore interface {
	// MarkProcessed returns true if this is the first time key has been
	// seen, atomically recording it as seen.
	MarkProcessed(ctx context.Context, key string) (firstSeen bool, err error)
}
