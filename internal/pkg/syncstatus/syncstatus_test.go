package syncstatus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
)

type fakeFinder struct {
	process *supervisor.Process
	err     error
	calls   int
}

func (f *fakeFinder) Find(context.Context, string) (*supervisor.Process, error) {
	f.calls++
	return f.process, f.err
}

func onlineProcess() *supervisor.Process {
	p := &supervisor.Process{Name: "acme"}
	p.Env.Status = supervisor.StatusOnline
	return p
}

func explorer(reachable bool, limit, used int64) *models.Explorer {
	return &models.Explorer{
		Slug: "acme",
		Workspace: &models.Workspace{
			RPCHealthCheck: &models.RPCHealthCheck{IsReachable: reachable},
		},
		Subscription: &models.ExplorerSubscription{
			TransactionQuota: used,
			StripePlan: &models.StripePlan{
				Capabilities: datatypes.NewJSONType(models.PlanCapabilities{TxLimit: limit}),
			},
		},
	}
}

func TestResolverOrder(t *testing.T) {
	tests := []struct {
		name      string
		explorer  *models.Explorer
		finder    *fakeFinder
		want      string
		wantCalls int
	}{
		{
			name:     "unreachable wins over quota",
			explorer: explorer(false, 10, 50),
			finder:   &fakeFinder{process: onlineProcess()},
			want:     StatusUnreachable,
		},
		{
			name:     "quota reached",
			explorer: explorer(true, 10, 10),
			finder:   &fakeFinder{process: onlineProcess()},
			want:     StatusQuotaReached,
		},
		{
			name:      "process status",
			explorer:  explorer(true, 10, 1),
			finder:    &fakeFinder{process: onlineProcess()},
			want:      supervisor.StatusOnline,
			wantCalls: 1,
		},
		{
			name:      "no process means stopped",
			explorer:  explorer(true, 0, 1),
			finder:    &fakeFinder{},
			want:      supervisor.StatusStopped,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver(tt.finder).Resolve(context.Background(), tt.explorer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.finder.calls)
		})
	}
}

func TestResolverNeverProbedCountsAsReachable(t *testing.T) {
	e := &models.Explorer{Slug: "fresh"}
	got, err := NewResolver(&fakeFinder{}).Resolve(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, supervisor.StatusStopped, got)
}

func TestResolverSupervisorError(t *testing.T) {
	_, err := NewResolver(&fakeFinder{err: errors.New("pm2 down")}).Resolve(context.Background(), explorer(true, 0, 0))
	assert.Error(t, err)
}
