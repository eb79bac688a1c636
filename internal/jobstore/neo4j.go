package jobstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Neo4j is the production JobStore, built on the generic repo.Neo4jRepo so
// ingest jobs survive process restarts.
type Neo4j struct {
	repo *repo.Neo4jRepo[domain.IngestJob, string]
}

// NewNeo4j creates a Neo4j-backed JobStore.
func NewNeo4j(driver neo4j.DriverWithContext) *Neo4j {
	return &Neo4j{repo: repo.NewNeo4jRepo[domain.IngestJob, string](driver, "IngestJob", jobToMap, jobFromRecord)}
}

var _ ports.JobStore = (*Neo4j)(nil)

func (n *Neo4j) CreateJob(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return n.repo.Create(ctx, job)
}

func (n *Neo4j) UpdateJob(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	job.UpdatedAt = time.Now().UTC()
	return n.repo.Update(ctx, job)
}

// GetJob enforces (tenantId, userId) ownership: a job outside the caller's
// tenant is reported NotFound, while a job in the caller's tenant but owned
// by a different user is reported via ErrForbidden.
func (n *Neo4j) GetJob(ctx context.Context, tenant domain.TenantID, userID, id string) (domain.IngestJob, error) {
	job, err := n.repo.Get(ctx, id)
	if err != nil {
		return domain.IngestJob{}, err
	}
	if job.TenantID != tenant {
		return domain.IngestJob{}, fmt.Errorf("jobstore: neo4j: job %s not found", id)
	}
	if job.UserID != userID {
		return domain.IngestJob{}, ErrForbidden
	}
	return job, nil
}

func (n *Neo4j) ListJobs(ctx context.Context, tenant domain.TenantID, userID string) ([]domain.IngestJob, error) {
	all, err := n.repo.List(ctx, repo.ListOpts{Limit: 1000})
	if err != nil {
		return nil, err
	}

	var out []domain.IngestJob
	for _, j := range all {
		if j.TenantID == tenant && (userID == "" || j.UserID == userID) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UpdatedAt.After(out[k].UpdatedAt) })
	return out, nil
}

func jobToMap(j domain.IngestJob) map[string]any {
	m := map[string]any{
		"id":         j.ID,
		"tenantId":   string(j.TenantID),
		"userId":     j.UserID,
		"title":      j.Title,
		"status":     string(j.Status),
		"sourceId":   j.SourceID,
		"chunkCount": int64(j.ChunkCount),
		"durationMs": j.DurationMs,
		"error":      j.Error,
		"createdAt":  j.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":  j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !j.StartedAt.IsZero() {
		m["startedAt"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	return m
}

func jobFromRecord(record *neo4j.Record) (domain.IngestJob, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](record, "n")
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("jobstore: neo4j: decode node: %w", err)
	}
	props := node.Props

	j := domain.IngestJob{
		ID:         strProp(props, "id"),
		TenantID:   domain.TenantID(strProp(props, "tenantId")),
		UserID:     strProp(props, "userId"),
		Title:      strProp(props, "title"),
		Status:     domain.JobStatus(strProp(props, "status")),
		SourceID:   strProp(props, "sourceId"),
		ChunkCount: int(intProp(props, "chunkCount")),
		DurationMs: intProp(props, "durationMs"),
		Error:      strProp(props, "error"),
	}
	j.CreatedAt = timeProp(props, "createdAt")
	j.UpdatedAt = timeProp(props, "updatedAt")
	j.StartedAt = timeProp(props, "startedAt")
	return j, nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func intProp(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func timeProp(props map[string]any, key string) time.Time {
	if v := strProp(props, key); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
