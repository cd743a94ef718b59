// Package syncstatus derives the externally visible sync status of an explorer.
package syncstatus

import (
	"context"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/quota"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
)

const (
	StatusUnreachable  = "unreachable"
	StatusQuotaReached = "transactionQuotaReached"
)

// ProcessFinder looks up the sync process of an explorer by slug.
type ProcessFinder interface {
	Find(ctx context.Context, slug string) (*supervisor.Process, error)
}

type Resolver struct {
	processes ProcessFinder
}

func NewResolver(processes ProcessFinder) *Resolver {
	return &Resolver{processes: processes}
}

// Resolve evaluates, in order: cached RPC reachability, the transaction
// quota, and the supervisor process status. The supervisor is only queried
// when neither of the first two signals applies.
func (r *Resolver) Resolve(ctx context.Context, e *models.Explorer) (string, error) {
	return Resolve(e.RPCReachable(), quota.Reached(e), func() (string, error) {
		p, err := r.processes.Find(ctx, e.Slug)
		if err != nil {
			return "", err
		}
		return p.Status(), nil
	})
}

// Resolve is the ordered, first-match-wins evaluation of the three signals.
func Resolve(rpcReachable, quotaReached bool, processStatus func() (string, error)) (string, error) {
	if !rpcReachable {
		return StatusUnreachable, nil
	}
	if quotaReached {
		return StatusQuotaReached, nil
	}
	status, err := processStatus()
	if err != nil {
		return "", err
	}
	if status == "" {
		return supervisor.StatusStopped, nil
	}
	return status, nil
}
