package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/metrics"
)

var (
	// ErrPoolClosed is returned by Submit after Stop.
	ErrPoolClosed = errors.New("pool closed")
	// ErrTaskPanic marks a task that panicked.
	ErrTaskPanic = errors.New("task panicked")
)

// Runner processes one meeting. *Processor is the production Runner.
type Runner interface {
	Process(ctx context.Context, fields core.Fields) (Result, error)
}

type task struct {
	id     string
	fields core.Fields
}

// Pool runs meetings on a fixed number of workers fed by a bounded queue.
type Pool struct {
	runner    Runner
	workers   int
	queueSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	onResult  func(Result)

	mu      sync.Mutex
	queue   chan task
	started bool
	closed  bool
	wg      sync.WaitGroup

	busy      atomic.Int32
	processed atomic.Int64
	failed    atomic.Int64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkers sets the worker count. Values below one mean one.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		p.workers = max(n, 1)
	}
}

// WithQueueSize sets how many meetings may wait for a worker.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		p.queueSize = max(n, 0)
	}
}

// WithPoolLogger sets the logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPoolMetrics enables metric collection.
func WithPoolMetrics(m *metrics.Metrics) PoolOption {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithResultHook is called from the worker goroutine after every task.
func WithResultHook(fn func(Result)) PoolOption {
	return func(p *Pool) {
		p.onResult = fn
	}
}

// NewPool creates a stopped pool. Call Start before submitting.
func NewPool(runner Runner, opts ...PoolOption) *Pool {
	p := &Pool{
		runner:    runner,
		workers:   4,
		queueSize: 64,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan task, p.queueSize)
	return p
}

// Start launches the workers. Tasks do not inherit cancellation from ctx:
// once accepted, a meeting is finished even while the process shuts down.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	taskCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		worker := i
		lifecycle.Go(taskCtx, func(ctx context.Context) error {
			defer p.wg.Done()
			for t := range p.queue {
				p.metrics.Queue(len(p.queue))
				p.execute(ctx, t)
			}
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			p.logger.Error("worker stopped", "worker", worker, "error", err)
		}))
	}
	p.logger.Debug("pool started", "workers", p.workers, "queue", p.queueSize)
}

// Submit queues a meeting and returns its task ID. It never blocks: a full
// queue yields core.ErrQueueFull.
func (p *Pool) Submit(fields core.Fields) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrPoolClosed
	}

	t := task{id: uuid.NewString(), fields: fields}
	select {
	case p.queue <- t:
		p.metrics.Queue(len(p.queue))
		p.logger.Debug("task queued", "task", t.id)
		return t.id, nil
	default:
		return "", fmt.Errorf("%w: %d waiting", core.ErrQueueFull, len(p.queue))
	}
}

// Stop refuses new work and waits for queued meetings to finish, or for ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pending := len(p.queue)
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}
	if pending > 0 {
		p.logger.Info("draining queued meetings", "pending", pending)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool drain interrupted: %w", ctx.Err())
	}
}

func (p *Pool) execute(ctx context.Context, t task) {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	start := time.Now()
	res := p.safeProcess(ctx, t)
	res.TaskID = t.id
	res.Duration = time.Since(start)

	label := "ok"
	if res.Err != nil {
		label = "error"
		if errors.Is(res.Err, ErrTaskPanic) {
			label = "panic"
		}
		p.failed.Add(1)
		p.logger.Error("meeting task failed", "task", t.id, "stem", res.Stem, "error", res.Err)
	} else {
		p.logger.Info("meeting processed", "task", t.id, "stem", res.Stem, "daily_log", res.DailyLog, "audio", res.Audio, "took", res.Duration)
	}
	p.processed.Add(1)
	p.metrics.Task(label, res.Duration)

	if p.onResult != nil {
		p.onResult(res)
	}
}

// safeProcess keeps a panicking task from taking its worker down.
func (p *Pool) safeProcess(ctx context.Context, t task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
			p.logger.Error("task panic", "task", t.id, "error", r, "stack", string(debug.Stack()))
		}
	}()

	out, err := p.runner.Process(ctx, t.fields)
	out.Err = err
	return out
}
