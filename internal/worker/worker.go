package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of asynchronous work.
type Task func()

// Stats holds cumulative pool counters.
type Stats struct {
	Executed int64
	Failed   int64
	Dropped  int64
}

// Pool is a bounded worker pool. Tasks run on a fixed number of
// goroutines fed by a buffered queue; a full queue rejects submissions
// instead of blocking the caller.
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	executed int64
	failed   int64
	dropped  int64
}

// NewPool creates and starts a pool with the given worker count and queue
// capacity.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.started = true
	zap.L().Info("worker pool started", zap.Int("workers", p.workers))
}

// Stop drains in-flight tasks and shuts the pool down.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	p.cancel()

	zap.L().Info("worker pool stopped")
}

// Submit enqueues a task without blocking. A full queue drops the task and
// returns false.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case p.queue <- task:
		return true
	default:
		atomic.AddInt64(&p.dropped, 1)
		zap.L().Warn("worker pool queue is full, task dropped")
		return false
	}
}

// SubmitBlocking enqueues a task, waiting up to timeout for queue space.
// timeout <= 0 waits indefinitely.
func (p *Pool) SubmitBlocking(task Task, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case p.queue <- task:
			return true
		case <-p.ctx.Done():
			return false
		}
	}

	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	select {
	case p.queue <- task:
		return true
	case <-ctx.Done():
		atomic.AddInt64(&p.dropped, 1)
		return false
	}
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() Stats {
	return Stats{
		Executed: atomic.LoadInt64(&p.executed),
		Failed:   atomic.LoadInt64(&p.failed),
		Dropped:  atomic.LoadInt64(&p.dropped),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.queue {
		p.execute(task)
	}
}

func (p *Pool) execute(task Task) {
	defer func() {
		atomic.AddInt64(&p.executed, 1)
		if r := recover(); r != nil {
			atomic.AddInt64(&p.failed, 1)
			zap.L().Error("panic recovered in worker task", zap.Any("panic", r))
		}
	}()
	task()
}
