// Package rpchealth periodically probes the RPC endpoint of every explorer
// workspace and records whether it is reachable.
package rpchealth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics"
	"github.com/ManuelReschke/BlockFox/internal/pkg/rpc"
)

const cacheKeyPrefix = "rpc_health:"

// SyncScheduler queues a convergence of an explorer's sync process.
type SyncScheduler interface {
	ScheduleSyncUpdate(ctx context.Context, explorerID uint) error
}

// Status is the cached outcome of the last probe of a workspace.
type Status struct {
	WorkspaceID    uint      `json:"workspace_id"`
	Reachable      bool      `json:"reachable"`
	NetworkID      string    `json:"network_id,omitempty"`
	FailedAttempts int       `json:"failed_attempts"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Options tune the monitor. ProbesPerSecond caps the outbound probe rate
// across all workers.
type Options struct {
	Interval        time.Duration
	ProbeTimeout    time.Duration
	Concurrency     int
	ProbesPerSecond float64
}

// Monitor probes workspace RPC endpoints on a ticker
type Monitor struct {
	repos   *repository.Repositories
	prober  rpc.Prober
	sync    SyncScheduler
	opts    Options
	limiter *rate.Limiter
	store   func(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	now     func() time.Time

	mu     sync.Mutex
	stopCh chan struct{}
}

func NewMonitor(repos *repository.Repositories, prober rpc.Prober, scheduler SyncScheduler, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.ProbesPerSecond <= 0 {
		opts.ProbesPerSecond = 20
	}
	return &Monitor{
		repos:   repos,
		prober:  prober,
		sync:    scheduler,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.ProbesPerSecond), opts.Concurrency),
		store:   cache.SetJSON,
		now:     time.Now,
	}
}

// Start runs a first sweep immediately and then one per interval.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	m.stopCh = stopCh

	go func() {
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		log.Infof("[RPCHealth] Monitor started (interval: %s)", m.opts.Interval)

		m.runLogged()
		for {
			select {
			case <-stopCh:
				log.Info("[RPCHealth] Monitor stopped")
				return
			case <-ticker.C:
				m.runLogged()
			}
		}
	}()
}

// Stop ends the ticker loop
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

func (m *Monitor) runLogged() {
	if err := m.RunOnce(context.Background()); err != nil {
		log.Errorf("[RPCHealth] Sweep failed: %v", err)
	}
}

// RunOnce probes every workspace that backs an explorer. Failures of single
// workspaces are logged and do not abort the sweep.
func (m *Monitor) RunOnce(ctx context.Context) error {
	workspaces, err := m.repos.Workspace.ListWithExplorer()
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i := range workspaces {
		ws := &workspaces[i]
		g.Go(func() error {
			if err := m.limiter.Wait(gctx); err != nil {
				return err
			}
			if err := m.check(gctx, ws); err != nil {
				log.Errorf("[RPCHealth] Workspace %d: %v", ws.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CheckWorkspace probes a single workspace right away.
func (m *Monitor) CheckWorkspace(ctx context.Context, workspaceID uint) error {
	ws, err := m.repos.Workspace.GetByID(workspaceID)
	if err != nil {
		return fmt.Errorf("failed to load workspace %d: %w", workspaceID, err)
	}
	return m.check(ctx, ws)
}

func (m *Monitor) check(ctx context.Context, ws *models.Workspace) error {
	networkID, probeErr := rpc.FetchNetworkIDWithTimeout(ctx, m.prober, ws.RPCServer, m.opts.ProbeTimeout)
	metrics.RPCProbes.WithLabelValues(metrics.Outcome(probeErr)).Inc()
	reachable := probeErr == nil

	health := ws.RPCHealthCheck
	if health == nil {
		health = &models.RPCHealthCheck{WorkspaceID: ws.ID, IsReachable: true}
	}
	wasReachable := health.IsReachable
	now := m.now()
	health.RecordProbe(reachable, now)

	if err := m.repos.Workspace.SaveHealthCheck(health); err != nil {
		return fmt.Errorf("failed to save health check: %w", err)
	}
	ws.RPCHealthCheck = health

	status := Status{
		WorkspaceID:    ws.ID,
		Reachable:      reachable,
		NetworkID:      networkID,
		FailedAttempts: health.FailedAttempts,
		CheckedAt:      now,
	}
	if err := m.store(ctx, CacheKey(ws.ID), status, 2*m.opts.Interval); err != nil {
		log.Warnf("[RPCHealth] Cache set failed for workspace %d: %v", ws.ID, err)
	}

	if !reachable {
		log.Warnf("[RPCHealth] Workspace %d unreachable (%d failed attempts): %v", ws.ID, health.FailedAttempts, probeErr)
	}

	explorer := ws.Explorer
	if explorer == nil || !explorer.ShouldSync {
		return nil
	}

	switch {
	case health.ExceededFailedAttempts():
		log.Infof("[RPCHealth] Disabling sync for explorer %d after %d failed probes", explorer.ID, health.FailedAttempts)
		if err := m.repos.Explorer.SetShouldSync(explorer.ID, false); err != nil {
			return fmt.Errorf("failed to disable sync: %w", err)
		}
		explorer.ShouldSync = false
		return m.schedule(ctx, explorer.ID)
	case reachable != wasReachable:
		return m.schedule(ctx, explorer.ID)
	}
	return nil
}

func (m *Monitor) schedule(ctx context.Context, explorerID uint) error {
	if m.sync == nil {
		return nil
	}
	return m.sync.ScheduleSyncUpdate(ctx, explorerID)
}

// CacheKey is the Redis key holding the last Status of a workspace.
func CacheKey(workspaceID uint) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, workspaceID)
}
