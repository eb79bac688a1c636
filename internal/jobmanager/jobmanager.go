// Package jobmanager runs asynchronous ingest jobs on a bounded worker
// pool, moving each job through a queued -> processing -> {completed,
// failed} state machine.
package jobmanager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/internal/rag"
)

// DefaultWorkers is the default bounded concurrency for ingest jobs.
const DefaultWorkers = 10

// Manager accepts ingest jobs and runs them on a fixed-size worker pool.
// Each job's single worker owns exclusive mutation rights over that job's
// state, so transitions are serialised per job without a global lock.
type Manager struct {
	jobs     ports.JobStore
	rag      *rag.Service
	events   ports.EventPublisher
	log      *slog.Logger
	work     chan func(context.Context)
	workers  int
}

// New creates a Manager with the given worker pool size.
func New(jobs ports.JobStore, ragSvc *rag.Service, events ports.EventPublisher, log *slog.Logger, workers int) *Manager {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		jobs:    jobs,
		rag:     ragSvc,
		events:  events,
		log:     log,
		work:    make(chan func(context.Context), workers*4),
		workers: workers,
	}
	return m
}

// Start launches the worker pool. It returns once ctx is cancelled and all
// in-flight jobs have drained.
func (m *Manager) Start(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < m.workers; i++ {
		go m.runWorker(ctx, done)
	}
	<-ctx.Done()
	for i := 0; i < m.workers; i++ {
		<-done
	}
}

func (m *Manager) runWorker(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-m.work:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

// Submit enqueues a new ingest job for tenant/user and returns its initial
// queued record immediately; the text is ingested asynchronously by a
// worker.
func (m *Manager) Submit(ctx context.Context, caller domain.UserContext, title, text string) (domain.IngestJob, error) {
	job := domain.IngestJob{
		ID:        uuid.NewString(),
		TenantID:  caller.TenantID,
		UserID:    caller.UserID,
		Title:     title,
		Status:    domain.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	job, err := m.jobs.CreateJob(ctx, job)
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("jobmanager: create job: %w", err)
	}

	select {
	case m.work <- func(workCtx context.Context) { m.process(workCtx, job, title, text) }:
	default:
		// Pool saturated: process the job in its own goroutine, outside the
		// worker pool, rather than drop it.
		go m.process(ctx, job, title, text)
	}
	return job, nil
}

func (m *Manager) process(ctx context.Context, job domain.IngestJob, title, text string) {
	started := time.Now().UTC()
	job.Status = domain.JobProcessing
	job.StartedAt = started
	job, err := m.jobs.UpdateJob(ctx, job)
	if err != nil {
		m.log.Error("jobmanager: mark processing failed", "job", job.ID, "error", err)
		return
	}

	source, chunkCount, err := m.rag.IngestText(ctx, job.TenantID, title, text)
	if err != nil {
		job.Status = domain.JobFailed
		job.Error = err.Error()
		if _, uerr := m.jobs.UpdateJob(ctx, job); uerr != nil {
			m.log.Error("jobmanager: mark failed failed", "job", job.ID, "error", uerr)
		}
		m.publish(ctx, domain.EventQueryFailed, job, map[string]any{"error": err.Error()})
		return
	}

	job.Status = domain.JobCompleted
	job.SourceID = source.ID
	job.ChunkCount = chunkCount
	job.DurationMs = time.Since(started).Milliseconds()
	if _, err := m.jobs.UpdateJob(ctx, job); err != nil {
		m.log.Error("jobmanager: mark completed failed", "job", job.ID, "error", err)
		return
	}
	m.publish(ctx, domain.EventDocumentIngested, job, map[string]any{"sourceId": source.ID})
}

func (m *Manager) publish(ctx context.Context, eventType domain.EventType, job domain.IngestJob, payload map[string]any) {
	if m.events == nil {
		return
	}
	event := domain.DomainEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		TenantID:   job.TenantID,
		UserID:     job.UserID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.log.Error("jobmanager: publish event failed", "job", job.ID, "event", eventType, "error", err)
	}
}
