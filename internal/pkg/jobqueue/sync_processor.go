package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics"
	"github.com/ManuelReschke/BlockFox/internal/pkg/quota"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
)

type syncAction string

const (
	syncActionNone   syncAction = "none"
	syncActionStart  syncAction = "start"
	syncActionStop   syncAction = "stop"
	syncActionDelete syncAction = "delete"
)

// ErrMissingDependency is returned when a job runs before SetDependencies
var ErrMissingDependency = errors.New("job queue dependencies not configured")

// shouldRun is the desired state of an explorer's sync process.
func shouldRun(e *models.Explorer) bool {
	return e.ShouldSync && e.HasSubscription() && !quota.Reached(e) && e.RPCReachable()
}

// decideSyncAction compares the desired state with the supervisor's view of the process.
func decideSyncAction(e *models.Explorer, process *supervisor.Process) syncAction {
	running := process.Status() == supervisor.StatusOnline
	switch {
	case shouldRun(e) && !running:
		return syncActionStart
	case !shouldRun(e) && running:
		return syncActionStop
	default:
		return syncActionNone
	}
}

// processUpdateExplorerSyncJob converges the sync process of one explorer
func (q *Queue) processUpdateExplorerSyncJob(ctx context.Context, job *Job) (err error) {
	action := syncActionNone
	defer func() {
		metrics.SyncJobs.WithLabelValues(string(action), metrics.Outcome(err)).Inc()
	}()

	payload, err := decodePayload[ExplorerSyncJobPayload](job)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if q.deps.Repos == nil || q.deps.Supervisor == nil {
		return ErrMissingDependency
	}

	explorer, err := q.deps.Repos.Explorer.GetByID(payload.ExplorerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load explorer %d: %w", payload.ExplorerID, err)
		}
		if payload.Slug == "" {
			log.Warnf("[JobQueue] Explorer %d vanished and no slug was queued, nothing to remove", payload.ExplorerID)
			return nil
		}
		action = syncActionDelete
		return q.deps.Supervisor.Delete(ctx, payload.Slug)
	}

	if q.deps.Usage != nil && explorer.HasSubscription() {
		pending, err := q.deps.Usage.Pending(ctx, explorer.ID)
		if err != nil {
			log.Warnf("[JobQueue] Failed to read pending usage of explorer %d: %v", explorer.ID, err)
		} else {
			explorer.Subscription.TransactionQuota += pending
		}
	}

	process, err := q.deps.Supervisor.Find(ctx, explorer.Slug)
	if err != nil {
		return fmt.Errorf("failed to look up process %s: %w", explorer.Slug, err)
	}

	action = decideSyncAction(explorer, process)
	switch action {
	case syncActionStart:
		workspace := ""
		if explorer.Workspace != nil {
			workspace = explorer.Workspace.Name
		}
		log.Infof("[JobQueue] Starting sync process for explorer %s", explorer.Slug)
		return q.deps.Supervisor.Start(ctx, explorer.Slug, workspace)
	case syncActionStop:
		log.Infof("[JobQueue] Stopping sync process for explorer %s", explorer.Slug)
		return q.deps.Supervisor.Stop(ctx, explorer.Slug)
	}
	return nil
}

// processDeleteExplorerSyncJob removes the sync process of a deleted explorer
func (q *Queue) processDeleteExplorerSyncJob(ctx context.Context, job *Job) (err error) {
	defer func() {
		metrics.SyncJobs.WithLabelValues(string(syncActionDelete), metrics.Outcome(err)).Inc()
	}()

	payload, err := decodePayload[ExplorerSyncJobPayload](job)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if payload.Slug == "" {
		return fmt.Errorf("delete job for explorer %d has no slug", payload.ExplorerID)
	}
	if q.deps.Supervisor == nil {
		return ErrMissingDependency
	}
	return q.deps.Supervisor.Delete(ctx, payload.Slug)
}

func (q *Queue) processRPCHealthCheckJob(ctx context.Context, job *Job) error {
	payload, err := decodePayload[RPCHealthCheckJobPayload](job)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if q.deps.Health == nil {
		return ErrMissingDependency
	}
	return q.deps.Health.CheckWorkspace(ctx, payload.WorkspaceID)
}

// ScheduleSyncUpdate enqueues a convergence job for one explorer
func (q *Queue) ScheduleSyncUpdate(ctx context.Context, explorerID uint) error {
	_, err := q.enqueue(ctx, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: explorerID})
	return err
}

// ScheduleSyncDelete enqueues removal of the sync process. The slug is carried
// along because the explorer row is gone by the time the job runs.
func (q *Queue) ScheduleSyncDelete(ctx context.Context, explorerID uint, slug string) error {
	_, err := q.enqueue(ctx, JobTypeDeleteExplorerSync, ExplorerSyncJobPayload{ExplorerID: explorerID, Slug: slug})
	return err
}

// ScheduleBulkSyncUpdate enqueues one convergence job per explorer in a single pipeline
func (q *Queue) ScheduleBulkSyncUpdate(ctx context.Context, explorerIDs []uint) error {
	payloads := make([]interface{}, 0, len(explorerIDs))
	for _, id := range explorerIDs {
		payloads = append(payloads, ExplorerSyncJobPayload{ExplorerID: id})
	}
	return q.EnqueueBulk(ctx, JobTypeUpdateExplorerSync, payloads)
}

// ScheduleRPCHealthCheck enqueues an immediate probe of a workspace RPC
func (q *Queue) ScheduleRPCHealthCheck(ctx context.Context, workspaceID uint) error {
	_, err := q.enqueue(ctx, JobTypeRPCHealthCheck, RPCHealthCheckJobPayload{WorkspaceID: workspaceID})
	return err
}
