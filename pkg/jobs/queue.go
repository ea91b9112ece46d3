package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is a unit of background work, such as refetching a customer's ledger.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Enqueued time.Time
	// Merged counts later submissions folded into this job while it waited.
	Merged int
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig sizes the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Queue runs jobs on a fixed set of goroutines. Jobs sharing a Key collapse while waiting:
// the queue keeps one slot per key and the latest payload wins. Failed jobs are logged and
// dropped.
type Queue struct {
	name    string
	handler Handler
	workers int
	logger  *zap.Logger

	ready chan string

	mu      sync.Mutex
	pending map[string]Job
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// NewQueue builds a queue for handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		ready:   make(chan string, cfg.BufferSize),
		pending: make(map[string]Job),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for them. Waiting jobs are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue schedules job. A job whose Key is already waiting replaces the waiting payload
// instead of taking a second slot.
func (q *Queue) Enqueue(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Key == "" {
		job.Key = job.ID
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if waiting, ok := q.pending[job.Key]; ok {
		job.ID = waiting.ID
		job.Enqueued = waiting.Enqueued
		job.Merged = waiting.Merged + 1
		q.pending[job.Key] = job
		return nil
	}
	if err := q.ctx.Err(); err != nil {
		return fmt.Errorf("queue %s stopped: %w", q.name, err)
	}
	select {
	case q.ready <- job.Key:
		q.pending[job.Key] = job
		return nil
	default:
		return fmt.Errorf("queue %s full", q.name)
	}
}

// Waiting returns the number of distinct keys not yet picked up by a worker.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) take(key string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.pending[key]
	delete(q.pending, key)
	return job, ok
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case key := <-q.ready:
			job, ok := q.take(key)
			if !ok {
				continue
			}
			if err := q.handler(q.ctx, job); err != nil {
				q.logger.Warn("job failed",
					zap.String("queue", q.name),
					zap.String("job_id", job.ID),
					zap.String("type", job.Type),
					zap.String("key", job.Key),
					zap.Int("merged", job.Merged),
					zap.Error(err),
				)
			}
		}
	}
}
