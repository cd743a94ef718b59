package lifecycle

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/BlockFox/internal/pkg/quota"
	"github.com/ManuelReschke/BlockFox/internal/pkg/rpc"
)

// UsageCounter accumulates ingested transactions until the job manager
// flushes them into the subscription quota.
type UsageCounter interface {
	AddTransactions(ctx context.Context, explorerID uint, n int64) error
	Pending(ctx context.Context, explorerID uint) (int64, error)
}

// RedisUsageCounter stores the counters in the shared Redis hash.
type RedisUsageCounter struct{}

func (RedisUsageCounter) AddTransactions(ctx context.Context, explorerID uint, n int64) error {
	return counter.AddTransactions(ctx, explorerID, n)
}

func (RedisUsageCounter) Pending(ctx context.Context, explorerID uint) (int64, error) {
	return counter.Pending(ctx, explorerID)
}

// StartSync marks the explorer for syncing. The process itself is started
// by a job worker.
func (s *Service) StartSync(ctx context.Context, user *models.User, explorerID uint) error {
	const op = "explorer.StartSync"
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return err
	}
	if !explorer.HasSubscription() {
		return apperr.NoActiveSubscription(op, "No active subscription for this explorer.")
	}
	if quota.Exceeds(s.usedQuota(ctx, explorer), explorer.Capabilities().TxLimit) {
		return apperr.QuotaExceeded(op, "Transaction quota reached, upgrade your plan to resume syncing.")
	}

	rpcServer := ""
	if explorer.Workspace != nil {
		rpcServer = explorer.Workspace.RPCServer
	}
	if _, err := rpc.FetchNetworkIDWithTimeout(ctx, s.prober, rpcServer, s.cfg.RPCProbeTimeout); err != nil {
		return apperr.UpstreamUnreachable(op, "This explorer's RPC is not reachable.", err)
	}

	return s.setSync(ctx, op, user, explorer, true)
}

// usedQuota is the flushed quota plus the transactions still counted in
// Redis. Without Redis only the flushed part is known.
func (s *Service) usedQuota(ctx context.Context, explorer *models.Explorer) int64 {
	used := explorer.Subscription.TransactionQuota
	pending, err := s.usage.Pending(ctx, explorer.ID)
	if err != nil {
		log.Warnf("[Explorer] Reading pending usage of explorer %d failed: %v", explorer.ID, err)
		return used
	}
	return used + pending
}

// StopSync marks the explorer as not syncing.
func (s *Service) StopSync(ctx context.Context, user *models.User, explorerID uint) error {
	const op = "explorer.StopSync"
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return err
	}
	return s.setSync(ctx, op, user, explorer, false)
}

func (s *Service) setSync(ctx context.Context, op string, user *models.User, explorer *models.Explorer, shouldSync bool) error {
	if err := s.repos.Explorer.SetShouldSync(explorer.ID, shouldSync); err != nil {
		return apperr.Internal(op, err)
	}
	explorer.ShouldSync = shouldSync
	if err := s.sync.ScheduleSyncUpdate(ctx, explorer.ID); err != nil {
		return apperr.Internal(op, err)
	}
	events.PublishSafe(ctx, s.events, events.New(events.ExplorerSyncRequested, explorer.ID, user.ID, map[string]interface{}{"shouldSync": shouldSync}))
	return nil
}

// SyncStatus reports the effective sync status of the explorer.
func (s *Service) SyncStatus(ctx context.Context, user *models.User, explorerID uint) (string, error) {
	const op = "explorer.SyncStatus"
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return "", err
	}
	status, err := s.status.Resolve(ctx, explorer)
	if err != nil {
		return "", apperr.UpstreamUnreachable(op, "Couldn't reach the process manager.", err)
	}
	return status, nil
}

// RefreshAll schedules a convergence of every explorer's sync process.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	const op = "explorer.RefreshAll"
	ids, err := s.repos.Explorer.ListIDs()
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	if err := s.sync.ScheduleBulkSyncUpdate(ctx, ids); err != nil {
		return 0, apperr.Internal(op, err)
	}
	log.Infof("[Explorer] Scheduled sync refresh for %d explorers", len(ids))
	return len(ids), nil
}

// RecordUsage adds ingested transactions to the explorer's counter. Once the
// quota is used up a sync update is scheduled so the process gets stopped.
func (s *Service) RecordUsage(ctx context.Context, explorerID uint, transactions int64) error {
	const op = "explorer.RecordUsage"
	if transactions <= 0 {
		return apperr.InvalidInput(op, "Transaction count must be positive.")
	}
	explorer, err := s.repos.Explorer.GetByID(explorerID)
	if err != nil {
		return lookupError(op, "Couldn't find explorer.", err)
	}
	if err := s.usage.AddTransactions(ctx, explorer.ID, transactions); err != nil {
		return apperr.Internal(op, err)
	}
	if !explorer.HasSubscription() || !explorer.ShouldSync {
		return nil
	}

	if quota.Exceeds(s.usedQuota(ctx, explorer), explorer.Capabilities().TxLimit) {
		log.Infof("[Explorer] Explorer %d reached its transaction quota", explorer.ID)
		if err := s.sync.ScheduleSyncUpdate(ctx, explorer.ID); err != nil {
			return apperr.Internal(op, err)
		}
	}
	return nil
}
