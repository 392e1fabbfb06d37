package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	queue "github.com/joseph-ayodele/meddocs/internal/async"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/core"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
)

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, raw entity.RawDocument, declaredType string, patientID int64, checkinID *int64) (core.ProcessOutcome, error)
}

var (
	_ DocumentProcessor = (*core.Processor)(nil)
	_ queue.Queue       = (*ProcessorQueue)(nil)
)

// ProcessorQueue runs queued documents on a fixed pool of workers.
type ProcessorQueue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration
	onDone  func(queue.Job, core.ProcessOutcome, error)

	ch   chan queue.Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan queue.Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *ProcessorQueue) { q.metrics = m }
}

// WithOnDone registers a callback invoked by the worker after each job.
func WithOnDone(fn func(queue.Job, core.ProcessOutcome, error)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan queue.Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.metrics.SetQueueDepth(len(q.ch))
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job queue.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	out, err := q.proc.Process(ctx, job.Document, job.DeclaredType, job.PatientID, job.CheckinID)
	switch {
	case err != nil:
		q.logger.Error("processing failed", "worker_id", workerID, "file", job.Document.Filename, "error", err)
	case out.Result.Failure != nil:
		q.logger.Warn("pipeline returned failure", "worker_id", workerID, "file", job.Document.Filename, "error", out.Result.Failure.Error)
	default:
		q.logger.Info("processed file successfully", "worker_id", workerID, "file", job.Document.Filename,
			"record_id", out.RecordID, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.onDone != nil {
		q.onDone(job, out, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "file", job.Document.Filename)
		return queue.ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "file", job.Document.Filename, "patient_id", job.PatientID)
	default:
		q.logger.Warn("queue full, applying backpressure", "file", job.Document.Filename)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.metrics.SetQueueDepth(len(q.ch))
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
