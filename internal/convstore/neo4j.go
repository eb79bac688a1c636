// Package convstore provides ports.ConversationStore implementations.
package convstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Neo4j is the Neo4j-backed ConversationStore.
type Neo4j struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed ConversationStore.
func NewNeo4j(driver neo4j.DriverWithContext) *Neo4j {
	return &Neo4j{driver: driver}
}

var _ ports.ConversationStore = (*Neo4j)(nil)

func (n *Neo4j) session(ctx context.Context) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{})
}

func (n *Neo4j) CreateConversation(ctx context.Context, c domain.Conversation) (domain.Conversation, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	result, err := sess.Run(ctx, `
		CREATE (c:Conversation {
			id: $id, tenantId: $tenantId, userId: $userId, title: $title,
			createdAt: $createdAt, updatedAt: $updatedAt
		}) RETURN c`,
		map[string]any{
			"id": c.ID, "tenantId": string(c.TenantID), "userId": c.UserID, "title": c.Title,
			"createdAt": c.CreatedAt.Format(time.RFC3339Nano),
			"updatedAt": c.UpdatedAt.Format(time.RFC3339Nano),
		})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: create: %w", err)
	}
	if !result.Next(ctx) {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: create: no record returned")
	}
	node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "c")
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: decode: %w", err)
	}
	return conversationFromProps(node.Props), nil
}

func (n *Neo4j) GetConversation(ctx context.Context, tenant domain.TenantID, id string) (domain.Conversation, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		MATCH (c:Conversation {id: $id, tenantId: $tenant}) RETURN c`,
		map[string]any{"id": id, "tenant": string(tenant)})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: get: %w", err)
	}
	if !result.Next(ctx) {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: conversation %s not found", id)
	}
	node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "c")
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("convstore: neo4j: decode: %w", err)
	}
	return conversationFromProps(node.Props), nil
}

func (n *Neo4j) ListConversations(ctx context.Context, tenant domain.TenantID, userID string) ([]domain.Conversation, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		MATCH (c:Conversation {tenantId: $tenant, userId: $userId})
		RETURN c ORDER BY c.updatedAt DESC`,
		map[string]any{"tenant": string(tenant), "userId": userID})
	if err != nil {
		return nil, fmt.Errorf("convstore: neo4j: list: %w", err)
	}

	var out []domain.Conversation
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "c")
		if err != nil {
			return nil, fmt.Errorf("convstore: neo4j: decode: %w", err)
		}
		out = append(out, conversationFromProps(node.Props))
	}
	return out, nil
}

// AppendMessage creates a Message node linked to its Conversation and bumps
// the conversation's updatedAt, mirroring the original service's
// add_message behaviour of touching the parent on every append.
func (n *Neo4j) AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	result, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Conversation {id: $conversationId})
			CREATE (m:Message {
				id: $id, conversationId: $conversationId, role: $role,
				content: $content, timestamp: $timestamp
			})
			CREATE (c)-[:HAS_MESSAGE]->(m)
			SET c.updatedAt = $timestamp
			RETURN m`,
			map[string]any{
				"conversationId": m.ConversationID,
				"id":             m.ID,
				"role":           m.Role,
				"content":        m.Content,
				"timestamp":      m.Timestamp.Format(time.RFC3339Nano),
			})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, fmt.Errorf("conversation %s not found", m.ConversationID)
		}
		return res.Record(), nil
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("convstore: neo4j: append message: %w", err)
	}

	record := result.(*neo4j.Record)
	node, _, err := neo4j.GetRecordValue[dbtype.Node](record, "m")
	if err != nil {
		return domain.Message{}, fmt.Errorf("convstore: neo4j: decode message: %w", err)
	}
	return messageFromProps(node.Props), nil
}

// GetHistory returns the conversation's newest limit messages (default 10),
// oldest first: the query selects them newest-first and the result is then
// re-sorted by timestamp.
func (n *Neo4j) GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	if limit <= 0 {
		limit = 10
	}
	result, err := sess.Run(ctx, `
		MATCH (:Conversation {id: $id})-[:HAS_MESSAGE]->(m:Message)
		RETURN m ORDER BY m.timestamp DESC LIMIT $limit`,
		map[string]any{"id": conversationID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("convstore: neo4j: history: %w", err)
	}

	var messages []domain.Message
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "m")
		if err != nil {
			return nil, fmt.Errorf("convstore: neo4j: decode message: %w", err)
		}
		messages = append(messages, messageFromProps(node.Props))
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp.Before(messages[j].Timestamp) })
	return messages, nil
}

func (n *Neo4j) DeleteConversation(ctx context.Context, tenant domain.TenantID, id string) error {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, `
		MATCH (c:Conversation {id: $id, tenantId: $tenant})
		OPTIONAL MATCH (c)-[:HAS_MESSAGE]->(m:Message)
		DETACH DELETE c, m`,
		map[string]any{"id": id, "tenant": string(tenant)})
	if err != nil {
		return fmt.Errorf("convstore: neo4j: delete: %w", err)
	}
	return nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func timeProp(props map[string]any, key string) time.Time {
	if v := strProp(props, key); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func conversationFromProps(props map[string]any) domain.Conversation {
	return domain.Conversation{
		ID:        strProp(props, "id"),
		TenantID:  domain.TenantID(strProp(props, "tenantId")),
		UserID:    strProp(props, "userId"),
		Title:     strProp(props, "title"),
		CreatedAt: timeProp(props, "createdAt"),
		UpdatedAt: timeProp(props, "updatedAt"),
	}
}

func messageFromProps(props map[string]any) domain.Message {
	return domain.Message{
		ID:             strProp(props, "id"),
		ConversationID: strProp(props, "conversationId"),
		Role:           strProp(props, "role"),
		Content:        strProp(props, "content"),
		Timestamp:      timeProp(props, "timestamp"),
	}
}
