package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories/cache"
)

// StatusStore persists job statuses so the outcome of an accepted transfer
// stays observable after the acknowledgement.
type StatusStore interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
}

// Dispatcher accepts transfer requests, acknowledges them immediately and
// executes them on a bounded worker pool.
type Dispatcher struct {
	engine   *Engine
	statuses StatusStore
	ttl      time.Duration

	jobs chan job
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type job struct {
	id  uuid.UUID
	req Request
}

// NewDispatcher starts cfg.Workers workers consuming a queue of
// cfg.QueueSize pending transfers.
func NewDispatcher(engine *Engine, statuses StatusStore, cfg Config) *Dispatcher {
	if engine == nil {
		panic("engine is required")
	}
	if statuses == nil {
		panic("status store is required")
	}
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		engine:   engine,
		statuses: statuses,
		ttl:      cfg.StatusTTL,
		jobs:     make(chan job, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue validates the request preconditions synchronously, then queues it
// for execution and returns the job id. A full queue returns ErrQueueFull so
// the caller sees backpressure instead of silent loss.
func (d *Dispatcher) Enqueue(ctx context.Context, req Request) (uuid.UUID, error) {
	if err := d.engine.Preflight(ctx, req); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	now := time.Now().UTC()
	if err := d.setStatus(ctx, &JobStatus{
		ID:        id,
		State:     JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record job status: %w", err)
	}

	select {
	case d.jobs <- job{id: id, req: req}:
		return id, nil
	default:
		return uuid.Nil, ErrQueueFull
	}
}

// Status returns the current state of an enqueued transfer.
func (d *Dispatcher) Status(ctx context.Context, id uuid.UUID) (*JobStatus, error) {
	var status JobStatus
	err := d.statuses.GetJSON(ctx, statusKey(id), &status)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job status: %w", err)
	}
	return &status, nil
}

// Close stops accepting work and waits for in-flight transfers to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	// Jobs outlive the request that enqueued them, so execution runs on a
	// fresh context.
	ctx := context.Background()
	now := time.Now().UTC()
	d.updateStatus(ctx, j.id, func(st *JobStatus) {
		st.State = JobRunning
		st.UpdatedAt = now
	})

	txn, err := d.engine.Execute(ctx, j.req)
	done := time.Now().UTC()
	switch {
	case err != nil:
		d.updateStatus(ctx, j.id, func(st *JobStatus) {
			st.State = JobFailed
			st.Error = err.Error()
			st.UpdatedAt = done
		})
	case txn.State == models.StateFailed:
		d.updateStatus(ctx, j.id, func(st *JobStatus) {
			st.State = JobFailed
			st.TransactionID = &txn.ID
			st.FailedReason = txn.FailedReason
			st.UpdatedAt = done
		})
	default:
		d.updateStatus(ctx, j.id, func(st *JobStatus) {
			st.State = JobSucceeded
			st.TransactionID = &txn.ID
			st.UpdatedAt = done
		})
	}
}

func (d *Dispatcher) updateStatus(ctx context.Context, id uuid.UUID, mutate func(*JobStatus)) {
	status, err := d.Status(ctx, id)
	if err != nil {
		status = &JobStatus{ID: id, CreatedAt: time.Now().UTC()}
	}
	mutate(status)
	if err := d.setStatus(ctx, status); err != nil {
		log.Printf("failed to update transfer job %s status: %v", id, err)
	}
}

func (d *Dispatcher) setStatus(ctx context.Context, status *JobStatus) error {
	return d.statuses.SetJSON(ctx, statusKey(status.ID), status, d.ttl)
}

func statusKey(id uuid.UUID) string {
	return "transfer:job:" + id.String()
}
