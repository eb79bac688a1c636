// Package vectorstore provides ports.VectorStore implementations.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Neo4j is the primary VectorStore backend, using Neo4j's native vector
// index for similarity search. tenantId on each Doc node is optional: nodes
// written before multi-tenancy defaulted to domain.DemoTenant, and search
// preserves that fallback rather than excluding them.
type Neo4j struct {
	driver    neo4j.DriverWithContext
	indexName string
}

// NewNeo4j creates a Neo4j-backed VectorStore. indexName must name an
// existing vector index over (:Doc {embedding}).
func NewNeo4j(driver neo4j.DriverWithContext, indexName string) *Neo4j {
	return &Neo4j{driver: driver, indexName: indexName}
}

var _ ports.VectorStore = (*Neo4j)(nil)

func (n *Neo4j) session(ctx context.Context) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{})
}

// UpsertChunks merges the Source node and creates one Doc node per chunk,
// linked by HAS_CHUNK, in a single write transaction so a mid-write failure
// leaves no partial source behind.
func (n *Neo4j) UpsertChunks(ctx context.Context, source domain.Source, chunks []domain.Chunk) error {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (s:Source {id: $id})
			SET s.tenantId = $tenantId, s.title = $title, s.kind = $kind, s.createdAt = $createdAt`,
			map[string]any{
				"id":        source.ID,
				"tenantId":  string(source.TenantID),
				"title":     source.Title,
				"kind":      source.Kind,
				"createdAt": source.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: neo4j: merge source: %w", err)
		}

		for _, c := range chunks {
			_, err := tx.Run(ctx, `
				MATCH (s:Source {id: $sourceId})
				MERGE (d:Doc {id: $id})
				SET d.tenantId = $tenantId, d.sourceId = $sourceId, d.chunkIndex = $index,
				    d.content = $content, d.embedding = $embedding
				MERGE (s)-[:HAS_CHUNK]->(d)`,
				map[string]any{
					"id":        c.ID,
					"sourceId":  source.ID,
					"tenantId":  string(c.TenantID),
					"index":     c.Index,
					"content":   c.Text,
					"embedding": c.Embedding,
				})
			if err != nil {
				return nil, fmt.Errorf("vectorstore: neo4j: merge chunk %s: %w", c.ID, err)
			}
		}
		return nil, nil
	})
	return err
}

// Search runs the tenant-scoped vector-index query, falling back to the
// demo tenant for nodes written before tenancy was tracked.
func (n *Neo4j) Search(ctx context.Context, tenant domain.TenantID, embedding []float32, topK int) ([]domain.SearchHit, error) {
	sess := n.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		CALL db.index.vector.queryNodes($index, $k, $vec) YIELD node, score
		WHERE coalesce(node.tenantId, $demoTenant) = $tenant
		RETURN node, score`,
		map[string]any{
			"index":      n.indexName,
			"k":          topK,
			"vec":        embedding,
			"tenant":     string(tenant),
			"demoTenant": string(domain.DemoTenant),
		})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: neo4j: search: %w", err)
	}

	var hits []domain.SearchHit
	for result.Next(ctx) {
		record := result.Record()
		node, _, err := neo4j.GetRecordValue[dbtype.Node](record, "node")
		if err != nil {
			return nil, fmt.Errorf("vectorstore: neo4j: decode node: %w", err)
		}
		score, _, err := neo4j.GetRecordValue[float64](record, "score")
		if err != nil {
			return nil, fmt.Errorf("vectorstore: neo4j: decode score: %w", err)
		}
		hits = append(hits, domain.SearchHit{
			ChunkID:  strProp(node.Props, "id"),
			SourceID: strProp(node.Props, "sourceId"),
			Text:     strProp(node.Props, "content"),
			Score:    float32(score),
		})
	}
	return hits, nil
}

// GetRecentSources lists a tenant's sources newest-first. The query counts
// each source's chunks, but the count is not part of the returned
// domain.Source values.
func (n *Neo4j) GetRecentSources(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.Source, error) {
	if limit <= 0 {
		limit = 20
	}
	sess := n.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		MATCH (s:Source {tenantId: $tenant})
		OPTIONAL MATCH (s)-[:HAS_CHUNK]->(d:Doc)
		WITH s, count(d) AS chunkCount
		RETURN s, chunkCount
		ORDER BY s.createdAt DESC
		LIMIT $limit`,
		map[string]any{"tenant": string(tenant), "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: neo4j: recent sources: %w", err)
	}

	var sources []domain.Source
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "s")
		if err != nil {
			return nil, fmt.Errorf("vectorstore: neo4j: decode source: %w", err)
		}
		sources = append(sources, sourceFromProps(node.Props))
	}
	return sources, nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func sourceFromProps(props map[string]any) domain.Source {
	s := domain.Source{
		ID:       strProp(props, "id"),
		TenantID: domain.TenantID(strProp(props, "tenantId")),
		Title:    strProp(props, "title"),
		Kind:     strProp(props, "kind"),
	}
	if ts := strProp(props, "createdAt"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			s.CreatedAt = t
		}
	}
	return s
}
