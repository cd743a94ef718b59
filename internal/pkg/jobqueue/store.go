package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

func jobKey(id string) string {
	return JobKeyPrefix + id
}

// EnqueueJob adds a new job to the queue. payload is stored as JSON.
func (q *Queue) EnqueueJob(jobType JobType, payload interface{}) (*Job, error) {
	return q.enqueue(context.Background(), jobType, payload)
}

func (q *Queue) enqueue(ctx context.Context, jobType JobType, payload interface{}) (*Job, error) {
	job, jobData, err := newStoredJob(jobType, payload)
	if err != nil {
		return nil, err
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKey(job.ID), jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

// EnqueueBulk adds one job per payload in a single pipeline. Individual job
// ids are not reported back.
func (q *Queue) EnqueueBulk(ctx context.Context, jobType JobType, payloads []interface{}) error {
	if len(payloads) == 0 {
		return nil
	}

	pipe := q.client.Pipeline()
	for _, payload := range payloads {
		job, jobData, err := newStoredJob(jobType, payload)
		if err != nil {
			return err
		}
		pipe.Set(ctx, jobKey(job.ID), jobData, JobTTL)
		pipe.LPush(ctx, JobQueueKey, job.ID)
	}
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), int64(len(payloads)))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue %d jobs: %w", len(payloads), err)
	}

	log.Infof("[JobQueue] Enqueued %d jobs (Type: %s)", len(payloads), jobType)
	return nil
}

func newJob(jobType JobType, payload interface{}) (*Job, error) {
	data, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    data,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}, nil
}

// newStoredJob builds a job together with the JSON written to Redis.
func newStoredJob(jobType JobType, payload interface{}) (*Job, []byte, error) {
	job, err := newJob(jobType, payload)
	if err != nil {
		return nil, nil, err
	}
	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return job, jobData, nil
}

// dequeueJob moves the oldest pending id to the processing list and loads
// its job. Ids whose job record is gone or unreadable are dropped.
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.removeFromProcessing(ctx, id)
		return nil, fmt.Errorf("job %s dropped: %w", id, err)
	}
	return job, nil
}

func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, jobKey(job.ID), jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing queue: %v", jobID, err)
	}
}

// removeCompletedJob deletes the job record; only the stats keep a trace.
func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, jobKey(jobID)).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove completed job %s from Redis: %v", jobID, err)
	}
}

func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// GetJobStats returns the lifetime counters per status. Unparsable counters
// are skipped.
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	stats := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
