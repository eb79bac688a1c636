package eventbus

import (
	"testing"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTopicForEventTypeGroupsByFamily(t *testing.T) {
	assert.Equal(t, "document-events", topicForEventType(domain.EventDocumentIngested))
	assert.Equal(t, "document-events", topicForEventType(domain.EventDocumentDeleted))
	assert.Equal(t, "query-events", topicForEventType(domain.EventQueryFailed))
	assert.Equal(t, "user-events", topicForEventType(domain.EventUserLogin))
	assert.Equal(t, "system-events", topicForEventType(domain.EventSystemHealth))
	assert.Equal(t, "events", topicForEventType(domain.EventType("something.else")))
}

func TestSubscriptionNameFormat(t *testing.T) {
	assert.Equal(t, "document-events-acme-worker1", subscriptionName("document-events", "acme", "worker1"))
}

func TestDlqTopicFormat(t *testing.T) {
	assert.Equal(t, "document-events-acme-dlq", dlqTopic("document-events", "acme"))
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	event := domain.DomainEvent{EventType: domain.EventDocumentIngested, TenantID: "acme", EventID: "evt-1"}
	k1 := idempotencyKey(event)
	k2 := idempotencyKey(event)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestIdempotencyKeyDiffersPerEvent(t *testing.T) {
	a := idempotencyKey(domain.DomainEvent{EventType: domain.EventDocumentIngested, TenantID: "acme", EventID: "evt-1"})
	b := idempotencyKey(domain.DomainEvent{EventType: domain.EventDocumentIngested, TenantID: "acme", EventID: "evt-2"})
	assert.NotEqual(t, a, b)
}
