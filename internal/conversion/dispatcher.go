package conversion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/config"
	jobsrepo "github.com/hayeon-dev/ai-gallery/database/repo/jobs"
	"github.com/hayeon-dev/ai-gallery/internal/worker"
)

// Dispatcher drains the jobs table. It polls for pending rows, claims each
// with a compare-and-swap so concurrent dispatchers never double-run a job,
// and hands claimed jobs to a bounded worker pool. A reaper loop returns
// jobs stuck in processing past the visibility timeout to pending.
type Dispatcher struct {
	repo    *jobsrepo.Repository
	service *Service
	pool    *worker.Pool

	pollInterval      time.Duration
	visibilityTimeout time.Duration
	batchSize         int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(repo *jobsrepo.Repository, service *Service, cfg *config.Config) *Dispatcher {
	pollInterval := cfg.JobPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	visibilityTimeout := cfg.JobVisibilityTimeout
	if visibilityTimeout <= 0 {
		visibilityTimeout = 10 * time.Minute
	}

	return &Dispatcher{
		repo:              repo,
		service:           service,
		pool:              worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize),
		pollInterval:      pollInterval,
		visibilityTimeout: visibilityTimeout,
		batchSize:         2 * cfg.WorkerCount,
	}
}

// Start rescues jobs abandoned by a previous process, then runs the poll
// and reaper loops until Stop.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	requeued, err := d.repo.RequeueAllProcessing()
	if err != nil {
		zap.L().Error("failed to requeue abandoned jobs", zap.Error(err))
	} else if requeued > 0 {
		zap.L().Info("requeued abandoned jobs", zap.Int64("count", requeued))
	}

	d.wg.Add(2)
	go d.pollLoop(ctx)
	go d.reaperLoop(ctx)

	zap.L().Info("job dispatcher started",
		zap.Duration("poll_interval", d.pollInterval),
		zap.Duration("visibility_timeout", d.visibilityTimeout))
}

// Stop halts the loops and drains in-flight jobs.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.pool.Stop()
	zap.L().Info("job dispatcher stopped")
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchPending(ctx)
		}
	}
}

// dispatchPending claims as many pending jobs as it can hand off. A claim
// that loses the compare-and-swap is skipped silently; another dispatcher
// got there first.
func (d *Dispatcher) dispatchPending(ctx context.Context) {
	jobs, err := d.repo.FetchPending(d.batchSize)
	if err != nil {
		zap.L().Error("failed to fetch pending jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		won, err := d.repo.Claim(job.ID)
		if err != nil {
			zap.L().Error("failed to claim job", zap.Uint("job_id", job.ID), zap.Error(err))
			continue
		}
		if !won {
			continue
		}

		claimed := job
		if !d.pool.Submit(func() { d.service.Process(ctx, claimed) }) {
			// The queue is full; the reaper will return the claim to
			// pending after the visibility timeout.
			zap.L().Warn("worker queue full, claimed job deferred", zap.Uint("job_id", claimed.ID))
			return
		}
	}
}

func (d *Dispatcher) reaperLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := d.visibilityTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requeued, err := d.repo.RequeueStale(time.Now().Add(-d.visibilityTimeout))
			if err != nil {
				zap.L().Error("failed to requeue stale jobs", zap.Error(err))
				continue
			}
			if requeued > 0 {
				zap.L().Warn("requeued stale processing jobs", zap.Int64("count", requeued))
			}
		}
	}
}
