package achievement

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Evaluate is run once per queued user.
type Evaluate func(ctx context.Context, userID string) error

// Queue runs evaluations on a fixed set of workers. Enqueue never blocks: when
// the buffer is full the request is dropped and logged.
type Queue struct {
	tasks    chan string
	evaluate Evaluate
	workers  int
	timeout  time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewQueue(evaluate Evaluate, workers, buffer int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Queue{
		tasks:    make(chan string, buffer),
		evaluate: evaluate,
		workers:  workers,
		timeout:  10 * time.Second,
	}
}

func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

func (q *Queue) Enqueue(userID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.tasks <- userID:
		return true
	default:
		slog.Warn("achievement queue full, dropping evaluation", "user_id", userID)
		return false
	}
}

// Stop drains pending evaluations and waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for userID := range q.tasks {
		q.run(ctx, userID)
	}
}

func (q *Queue) run(ctx context.Context, userID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("achievement evaluation panicked", "user_id", userID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()
	if err := q.evaluate(ctx, userID); err != nil {
		slog.Error("achievement evaluation failed", "user_id", userID, "error", err)
	}
}
