package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// startedAt is when the job was last picked up by a worker.
func (j *Job) startedAt() time.Time {
	switch {
	case j.ProcessedAt != nil && !j.ProcessedAt.IsZero():
		return *j.ProcessedAt
	case !j.UpdatedAt.IsZero():
		return j.UpdatedAt
	default:
		return j.CreatedAt
	}
}

// recoverStuck walks the processing list. Jobs a crashed worker left behind
// for longer than maxAge go back to the pending list; entries without a
// readable job or no longer processing are removed. It returns how many jobs
// were requeued.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Sweeper dropping unreadable job %s: %v", id, err)
			}
			q.removeFromProcessing(ctx, id)
			continue
		}
		if job.Status != JobStatusProcessing {
			q.removeFromProcessing(ctx, id)
			continue
		}

		age := now.Sub(job.startedAt())
		if age <= maxAge {
			continue
		}

		log.Warnf("[JobQueue] Recovering stuck job %s (type=%s), age=%s", job.ID, job.Type, age)
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered by sweeper"
		job.UpdatedAt = now
		q.updateJob(ctx, job)

		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, JobProcessingKey, 1, id)
		pipe.RPush(ctx, JobQueueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}
