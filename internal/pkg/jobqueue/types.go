package jobqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeUpdateExplorerSync JobType = "update_explorer_sync"
	JobTypeDeleteExplorerSync JobType = "delete_explorer_sync"
	JobTypeRPCHealthCheck     JobType = "rpc_health_check"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

var errEmptyPayload = errors.New("job has no payload")

// Job is the record stored under JobKeyPrefix+ID. Payload holds the JSON of
// one of the *Payload types below and is decoded by the processor of Type.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
}

// ExplorerSyncJobPayload asks a worker to converge the sync process of an
// explorer to its desired state. Slug is kept so a deleted explorer's process
// can still be found.
type ExplorerSyncJobPayload struct {
	ExplorerID uint   `json:"explorer_id"`
	Slug       string `json:"slug,omitempty"`
}

// RPCHealthCheckJobPayload asks for an immediate probe of one workspace RPC.
type RPCHealthCheckJobPayload struct {
	WorkspaceID uint `json:"workspace_id"`
}

func encodePayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// decodePayload reads the payload of job into a T.
func decodePayload[T any](job *Job) (*T, error) {
	if len(job.Payload) == 0 {
		return nil, errEmptyPayload
	}
	var out T
	if err := json.Unmarshal(job.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// transition moves the job to status and stamps the matching timestamps.
// Entering failed counts an attempt and keeps reason; completing clears it.
func (j *Job) transition(status JobStatus, reason string) {
	now := time.Now()
	j.Status = status
	j.UpdatedAt = now

	switch status {
	case JobStatusProcessing:
		j.ProcessedAt = &now
	case JobStatusCompleted:
		j.CompletedAt = &now
		j.ErrorMsg = ""
	case JobStatusFailed:
		j.ErrorMsg = reason
		j.RetryCount++
	}
}

// attemptsLeft reports whether a failed job may run again.
func (j *Job) attemptsLeft() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// retryDelay grows linearly with the number of failed attempts.
func (j *Job) retryDelay() time.Duration {
	return time.Minute * time.Duration(j.RetryCount)
}
