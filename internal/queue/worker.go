package queue

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Handler processes one message.
type Handler func(ctx context.Context, msg *Message) error

// Worker drains a Queue into a pool of goroutines.
type Worker struct {
	queue        Queue
	handler      Handler
	workers      int
	maxAttempts  int
	pollInterval time.Duration
	logger       *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkers sets the number of concurrent handlers. Default 1.
func WithWorkers(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithMaxAttempts sets how many times a message is tried before it is dropped. Default 3.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithPollInterval sets how often an empty queue is checked. Default 1s.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a worker that feeds messages from q to handler.
func NewWorker(q Queue, handler Handler, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:        q,
		handler:      handler,
		workers:      1,
		maxAttempts:  3,
		pollInterval: time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "queue-worker"))
	return w
}

// Run polls the queue until ctx is canceled, then waits for in-flight handlers.
func (w *Worker) Run(ctx context.Context) error {
	pool, err := ants.NewPool(w.workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.drain(ctx, pool, &wg); err != nil && ctx.Err() == nil {
			w.logger.Error("receive failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// drain submits every currently queued message. Submit blocks while all workers are busy.
func (w *Worker) drain(ctx context.Context, pool *ants.Pool, wg *sync.WaitGroup) error {
	for ctx.Err() == nil {
		msg, err := w.queue.Receive(ctx)
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			w.process(ctx, msg)
		}); err != nil {
			wg.Done()
			w.retry(ctx, msg, err)
		}
	}
	return nil
}

func (w *Worker) process(ctx context.Context, msg *Message) {
	start := time.Now()
	err := w.handler(ctx, msg)
	if err == nil {
		w.logger.Debug("message processed",
			zap.String("id", msg.ID), zap.String("cursor", msg.Cursor), zap.Duration("took", time.Since(start)))
		return
	}
	w.retry(ctx, msg, err)
}

func (w *Worker) retry(ctx context.Context, msg *Message, cause error) {
	if msg.Attempt >= w.maxAttempts {
		w.logger.Error("dropping message after max attempts",
			zap.String("id", msg.ID), zap.String("cursor", msg.Cursor),
			zap.Int("attempts", msg.Attempt), zap.Error(cause))
		return
	}
	w.logger.Warn("message failed, requeueing",
		zap.String("id", msg.ID), zap.String("cursor", msg.Cursor),
		zap.Int("attempt", msg.Attempt), zap.Error(cause))
	next := *msg
	next.Attempt++
	// requeue must survive shutdown of the run context
	if err := w.queue.Send(context.WithoutCancel(ctx), &next); err != nil {
		w.logger.Error("requeue failed", zap.String("id", msg.ID), zap.Error(err))
	}
}
