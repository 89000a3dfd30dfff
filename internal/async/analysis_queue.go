package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/internal/entity"
)

// Analyzer is the single-certificate pipeline the queue drives.
type Analyzer interface {
	AnalyzeOne(ctx context.Context, ownerID, certificateID, locator string) (*entity.EnrichedRecord, error)
}

// ResultFunc observes each finished job. It runs on the worker goroutine.
type ResultFunc func(job Job, rec *entity.EnrichedRecord, err error)

// AnalysisQueue runs queued jobs on a fixed set of workers.
type AnalysisQueue struct {
	analyzer Analyzer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*AnalysisQueue)

func WithWorkers(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *AnalysisQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultFunc(f ResultFunc) Option {
	return func(q *AnalysisQueue) {
		q.onResult = f
	}
}

func NewAnalysisQueue(analyzer Analyzer, logger *slog.Logger, opts ...Option) *AnalysisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &AnalysisQueue{
		analyzer: analyzer,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AnalysisQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *AnalysisQueue) run(workerID int, job Job) {
	logger := q.logger.With(
		"worker_id", workerID,
		"owner_id", job.OwnerID,
		"certificate_id", job.CertificateID,
		"trace_id", job.TraceID,
	)
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	rec, err := q.analyzer.AnalyzeOne(ctx, job.OwnerID, job.CertificateID, job.Locator)
	if err != nil {
		logger.Error("queue.job.failed", "error", err)
	} else {
		logger.Info("queue.job.done",
			"status", rec.Status,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onResult != nil {
		q.onResult(job, rec, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *AnalysisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "certificate_id", job.CertificateID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "certificate_id", job.CertificateID, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue.full", "certificate_id", job.CertificateID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for
// ctx to end.
func (q *AnalysisQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
