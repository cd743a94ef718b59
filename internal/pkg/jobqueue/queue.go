package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
)

const (
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	JobStatsKey      = "job_stats"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour

	stuckAfter    = 10 * time.Minute
	sweepInterval = time.Minute
	idleBackoff   = time.Second
)

// HealthChecker probes one workspace RPC and records the outcome.
type HealthChecker interface {
	CheckWorkspace(ctx context.Context, workspaceID uint) error
}

// PendingUsage reports ingested transactions not yet flushed to the database.
type PendingUsage interface {
	Pending(ctx context.Context, explorerID uint) (int64, error)
}

// Dependencies are the collaborators the job processors act on.
type Dependencies struct {
	Repos      *repository.Repositories
	Supervisor supervisor.Supervisor
	Health     HealthChecker
	Usage      PendingUsage
}

// Queue is a Redis backed job queue. Pending ids live in JobQueueKey, ids
// taken by a worker in JobProcessingKey and the job itself under
// JobKeyPrefix+id.
type Queue struct {
	client  *redis.Client
	workers int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	deps    Dependencies
}

func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 3
	}
	return &Queue{client: cache.GetClient(), workers: workers}
}

// SetDependencies wires the processors. It must be called before Start.
func (q *Queue) SetDependencies(deps Dependencies) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deps = deps
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.wg.Add(1)
	go q.sweeper(ctx)
}

// Stop lets every worker finish its current job and waits for them.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel == nil {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	q.cancel()
	q.cancel = nil
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for ctx.Err() == nil {
		job, err := q.dequeueJob(ctx)
		switch {
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled):
			continue
		case err != nil:
			log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
			sleepCtx(ctx, idleBackoff)
			continue
		}

		log.Infof("[JobQueue] Worker %d processing job %s (Type: %s)", id, job.ID, job.Type)
		// A job that started runs to the end even while stopping.
		q.processJob(context.WithoutCancel(ctx), job)
	}
}

func (q *Queue) sweeper(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.recoverStuck(ctx, stuckAfter, time.Now()); err != nil {
				log.Errorf("[JobQueue] Sweeper failed: %v", err)
			} else if n > 0 {
				log.Warnf("[JobQueue] Requeued %d stuck jobs", n)
			}
		}
	}
}

// processJob runs a dequeued job and records its outcome. Failed jobs are
// pushed back after retryDelay until MaxRetries is reached.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.transition(JobStatusProcessing, "")
	q.updateJob(ctx, job)

	defer q.removeFromProcessing(ctx, job.ID)

	err := q.runJob(ctx, job)
	if err == nil {
		log.Infof("[JobQueue] Job %s completed successfully", job.ID)
		job.transition(JobStatusCompleted, "")
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		q.removeCompletedJob(ctx, job.ID)
		return
	}

	log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
	job.transition(JobStatusFailed, err.Error())

	if !job.attemptsLeft() {
		log.Errorf("[JobQueue] Job %s permanently failed after %d retries", job.ID, job.RetryCount)
		q.updateJobStats(ctx, JobStatusFailed, 1)
		q.updateJob(ctx, job)
		return
	}

	log.Infof("[JobQueue] Retrying job %s (Attempt %d/%d)", job.ID, job.RetryCount, job.MaxRetries)
	job.transition(JobStatusRetrying, "")
	q.updateJob(ctx, job)
	time.AfterFunc(job.retryDelay(), func() {
		q.client.LPush(context.Background(), JobQueueKey, job.ID)
	})
}

// runJob dispatches a job to its processor
func (q *Queue) runJob(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeUpdateExplorerSync:
		return q.processUpdateExplorerSyncJob(ctx, job)
	case JobTypeDeleteExplorerSync:
		return q.processDeleteExplorerSyncJob(ctx, job)
	case JobTypeRPCHealthCheck:
		return q.processRPCHealthCheckJob(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
