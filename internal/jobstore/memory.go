// Package jobstore provides ports.JobStore implementations.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
)

// ErrForbidden is returned by GetJob when a job exists in the requested
// tenant but belongs to a different user.
var ErrForbidden = errors.New("jobstore: requester does not own this job")

// Memory is an in-process JobStore, the default for local development and
// tests, grounded on the original service's InMemoryIngestJobRepo.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]domain.IngestJob
}

// NewMemory creates an empty in-memory JobStore.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]domain.IngestJob)}
}

var _ ports.JobStore = (*Memory)(nil)

func (m *Memory) CreateJob(_ context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	m.jobs[job.ID] = job
	return job, nil
}

func (m *Memory) UpdateJob(_ context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[job.ID]
	if !ok {
		return domain.IngestJob{}, fmt.Errorf("jobstore: memory: job %s not found", job.ID)
	}
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = time.Now().UTC()
	m.jobs[job.ID] = job
	return job, nil
}

// GetJob enforces (tenantId, userId) ownership: a job outside the caller's
// tenant is reported NotFound, while a job in the caller's tenant but owned
// by a different user is reported via ErrForbidden.
func (m *Memory) GetJob(_ context.Context, tenant domain.TenantID, userID, id string) (domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.TenantID != tenant {
		return domain.IngestJob{}, fmt.Errorf("jobstore: memory: job %s not found", id)
	}
	if job.UserID != userID {
		return domain.IngestJob{}, ErrForbidden
	}
	return job, nil
}

// ListJobs returns the tenant/user's jobs, newest-updated first.
func (m *Memory) ListJobs(_ context.Context, tenant domain.TenantID, userID string) ([]domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.IngestJob
	for _, j := range m.jobs {
		if j.TenantID == tenant && (userID == "" || j.UserID == userID) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UpdatedAt.After(out[k].UpdatedAt) })
	return out, nil
}
