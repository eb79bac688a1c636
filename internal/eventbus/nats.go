package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/pkg/natsutil"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Bus publishes and dispatches domain events over NATS JetStream.
type Bus struct {
	js    jetstream.JetStream
	keys  KeyStore
	log   *slog.Logger
}

// NewBus creates a Bus over an already-connected nats.Conn.
func NewBus(nc *nats.Conn, keys KeyStore, log *slog.Logger) (*Bus, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("eventbus: jetstream: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bus{js: js, keys: keys, log: log}, nil
}

var _ ports.EventPublisher = (*Bus)(nil)

// EnsureStream creates (or updates) the JetStream stream backing a topic,
// with the retention and subjects the original Pub/Sub topic carried.
func (b *Bus) EnsureStream(ctx context.Context, topic string) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     topic,
		Subjects: []string{topic + ".>"},
		MaxAge:   RetentionSeconds * time.Second,
	})
	if err != nil {
		return fmt.Errorf("eventbus: ensure stream %s: %w", topic, err)
	}
	// dead-letter stream, one per topic, fed by consumer republish on
	// exhausted delivery attempts.
	_, err = b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     topic + "-dlq",
		Subjects: []string{topic + "-dlq.>"},
		MaxAge:   RetentionSeconds * time.Second,
	})
	if err != nil {
		return fmt.Errorf("eventbus: ensure dlq stream %s: %w", topic, err)
	}
	return nil
}

// Publish sends a domain event to its topic's subject. A duplicate publish
// carrying an already-processed idempotency key is silently suppressed,
// matching the original adapter's _is_message_processed guard.
func (b *Bus) Publish(ctx context.Context, event domain.DomainEvent) error {
	if event.IdempotencyKey == "" {
		event.IdempotencyKey = idempotencyKey(event)
	}

	if b.keys != nil {
		firstSeen, err := b.keys.MarkProcessed(ctx, event.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("eventbus: idempotency check: %w", err)
		}
		if !firstSeen {
			b.log.Info("eventbus: suppressed duplicate publish", "event", event.EventID, "key", event.IdempotencyKey)
			return nil
		}
	}

	topic := topicForEventType(event.EventType)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", topic, event.EventType)
	header := make(nats.Header)
	natsutil.InjectHeaders(ctx, header)
	header.Set("tenant_id", string(event.TenantID))
	header.Set("event_type", string(event.EventType))
	header.Set("idempotency_key", event.IdempotencyKey)
	header.Set("correlation_id", event.CorrelationID)
	header.Set("retry_count", strconv.Itoa(event.RetryCount))
	if event.UserID != "" {
		header.Set("user_id", event.UserID)
	}
	msg := &nats.Msg{Subject: subject, Data: body, Header: header}
	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", subject, err)
	}
	return nil
}

// Handler processes one delivered domain event. Returning an error causes
// redelivery (subject to MaxDeliveryAttempts); nil acks the message.
type Handler func(ctx context.Context, event domain.DomainEvent) error

// Subscribe creates (if needed) a tenant-scoped durable consumer on topic
// and runs handler for each delivered event until ctx is cancelled,
// matching the original's create_tenant_subscription + subscribe_to_tenant_events
// flow: idempotency check, then handler, then ack/nak.
func (b *Bus) Subscribe(ctx context.Context, eventType domain.EventType, tenant domain.TenantID, suffix string, handler Handler) error {
	topic := topicForEventType(eventType)
	name := subscriptionName(topic, tenant, suffix)
	subject := fmt.Sprintf("%s.%s", topic, eventType)

	stream, err := b.js.Stream(ctx, topic)
	if err != nil {
		return fmt.Errorf("eventbus: stream %s: %w", topic, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       AckDeadline * time.Second,
		MaxDeliver:    MaxDeliveryAttempts,
		MaxAckPending: 10,
		BackOff:       []time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute},
	})
	if err != nil {
		return fmt.Errorf("eventbus: create consumer %s: %w", name, err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		b.handleDelivery(ctx, topic, tenant, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("eventbus: consume %s: %w", name, err)
	}

	<-ctx.Done()
	cons.Stop()
	return nil
}

func (b *Bus) handleDelivery(ctx context.Context, topic string, tenant domain.TenantID, msg jetstream.Msg, handler Handler) {
	var event domain.DomainEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		b.log.Error("eventbus: malformed message, dropping", "error", err)
		_ = msg.Term()
		return
	}
	ctx = natsutil.ExtractHeaders(msg.Headers())

	if meta, err := msg.Metadata(); err == nil && meta.NumDelivered > MaxDeliveryAttempts {
		b.routeToDLQ(ctx, topic, tenant, msg.Data())
		_ = msg.Term()
		return
	}

	if b.keys != nil {
		firstSeen, err := b.keys.MarkProcessed(ctx, event.IdempotencyKey)
		if err != nil {
			b.log.Error("eventbus: idempotency check failed", "error", err)
			_ = msg.Nak()
			return
		}
		if !firstSeen {
			_ = msg.Ack()
			return
		}
	}

	if event.TenantID != tenant {
		// Mismatched tenant on a tenant-scoped subscription: drop silently,
		// matching the original's tenant-mismatch-then-ack behaviour.
		_ = msg.Ack()
		return
	}

	if err := handler(ctx, event); err != nil {
		b.log.Error("eventbus: handler failed", "event", event.EventID, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

func (b *Bus) routeToDLQ(ctx context.Context, topic string, tenant domain.TenantID, body []byte) {
	subject := dlqTopic(topic, tenant)
	if _, err := b.js.Publish(ctx, subject, body); err != nil {
		b.log.Error("eventbus: dlq publish failed", "subject", subject, "error", err)
	}
}
