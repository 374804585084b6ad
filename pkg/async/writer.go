package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/portalgate/pkg/logger"
)

// Job is a unit of deferred work, typically a write to a durable store.
type Job struct {
	// Name identifies the job in logs, e.g. "session.save".
	Name string
	// Run performs the work. It is retried on error.
	Run func(ctx context.Context) error
}

// Writer executes submitted jobs on a single background goroutine in
// submission order. Callers never block on the job itself: Submit only
// enqueues. Failed jobs are retried with a linear backoff and logged when
// the attempts are exhausted.
type Writer struct {
	jobs          chan Job
	done          chan struct{}
	stopped       chan struct{}
	retryAttempts int
	retryInterval time.Duration
	jobTimeout    time.Duration
	log           *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithBufferSize sets the number of jobs that can wait in the queue.
func WithBufferSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.jobs = make(chan Job, n)
		}
	}
}

// WithRetry sets how many times a failing job is attempted and the base
// delay between attempts. Attempt i waits i*interval.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(w *Writer) {
		if attempts > 0 {
			w.retryAttempts = attempts
		}
		if interval >= 0 {
			w.retryInterval = interval
		}
	}
}

// WithJobTimeout bounds a single attempt.
func WithJobTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// WithLogger sets the logger used for failed jobs.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWriter starts a Writer. Call Close to drain and stop it.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		jobs:          make(chan Job, 1024),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
		retryAttempts: 3,
		retryInterval: 100 * time.Millisecond,
		jobTimeout:    5 * time.Second,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.worker()

	return w
}

// Submit enqueues a job without waiting for it to run.
// When the buffer is full the job is dropped and ErrQueueFull returned.
func (w *Writer) Submit(job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.jobs <- job:
		return nil
	default:
		w.log.Warn("write-behind queue full, job dropped", logger.Event(job.Name))
		return ErrQueueFull
	}
}

// Pending reports the number of queued jobs.
func (w *Writer) Pending() int {
	return len(w.jobs)
}

// Close stops accepting jobs, runs everything already queued and waits for
// the worker to exit or ctx to end, whichever comes first.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) worker() {
	defer close(w.stopped)

	for {
		select {
		case job := <-w.jobs:
			w.run(job)
		case <-w.done:
			for {
				select {
				case job := <-w.jobs:
					w.run(job)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) run(job Job) {
	if job.Run == nil {
		return
	}

	var err error
	for attempt := 1; attempt <= w.retryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
		err = job.Run(ctx)
		cancel()
		if err == nil {
			return
		}
		if attempt < w.retryAttempts {
			time.Sleep(time.Duration(attempt) * w.retryInterval)
		}
	}

	w.log.Error("write-behind job failed",
		logger.Event(job.Name),
		slog.Int("attempts", w.retryAttempts),
		logger.Error(err),
	)
}
