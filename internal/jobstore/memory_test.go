package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateAndGetJob(t *testing.T) {
	store := NewMemory()
	created, err := store.CreateJob(context.Background(), domain.IngestJob{ID: "job-1", TenantID: "acme", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetJob(context.Background(), "acme", "u1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)
}

func TestMemoryGetJobWrongTenantNotFound(t *testing.T) {
	store := NewMemory()
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "job-1", TenantID: "acme", UserID: "u1"})

	_, err := store.GetJob(context.Background(), "globex", "u1", "job-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestMemoryGetJobWrongUserForbidden(t *testing.T) {
	store := NewMemory()
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "job-1", TenantID: "acme", UserID: "u1"})

	_, err := store.GetJob(context.Background(), "acme", "u2", "job-1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMemoryUpdateJobPreservesCreatedAt(t *testing.T) {
	store := NewMemory()
	created, _ := store.CreateJob(context.Background(), domain.IngestJob{ID: "job-1", TenantID: "acme"})

	updated, err := store.UpdateJob(context.Background(), domain.IngestJob{ID: "job-1", TenantID: "acme", Status: domain.JobCompleted})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, domain.JobCompleted, updated.Status)
}

func TestMemoryUpdateJobUnknownIDErrors(t *testing.T) {
	store := NewMemory()
	_, err := store.UpdateJob(context.Background(), domain.IngestJob{ID: "missing"})
	assert.Error(t, err)
}

func TestMemoryListJobsFiltersByTenantAndUser(t *testing.T) {
	store := NewMemory()
	now := time.Now()
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "a", TenantID: "acme", UserID: "u1", UpdatedAt: now})
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "b", TenantID: "acme", UserID: "u2", UpdatedAt: now.Add(time.Second)})
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "c", TenantID: "globex", UserID: "u1", UpdatedAt: now})

	jobs, err := store.ListJobs(context.Background(), "acme", "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	scoped, err := store.ListJobs(context.Background(), "acme", "u1")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "a", scoped[0].ID)
}

func TestMemoryListJobsOrdersNewestFirst(t *testing.T) {
	store := NewMemory()
	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "a", TenantID: "acme"})
	_, err := store.UpdateJob(context.Background(), domain.IngestJob{ID: "a", TenantID: "acme", Status: domain.JobProcessing})
	require.NoError(t, err)

	_, _ = store.CreateJob(context.Background(), domain.IngestJob{ID: "b", TenantID: "acme"})

	jobs, err := store.ListJobs(context.Background(), "acme", "")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].UpdatedAt.After(jobs[1].UpdatedAt) || jobs[0].UpdatedAt.Equal(jobs[1].UpdatedAt))
}
