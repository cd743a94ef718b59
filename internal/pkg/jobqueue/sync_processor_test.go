package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository/mocks"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
)

type fakeSupervisor struct {
	processes map[string]*supervisor.Process
	calls     []string
	findErr   error
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{processes: map[string]*supervisor.Process{}}
}

func (f *fakeSupervisor) Find(_ context.Context, slug string) (*supervisor.Process, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.processes[slug], nil
}

func (f *fakeSupervisor) Start(_ context.Context, slug, workspace string) error {
	f.calls = append(f.calls, "start:"+slug+":"+workspace)
	return nil
}

func (f *fakeSupervisor) Stop(_ context.Context, slug string) error {
	f.calls = append(f.calls, "stop:"+slug)
	return nil
}

func (f *fakeSupervisor) Delete(_ context.Context, slug string) error {
	f.calls = append(f.calls, "delete:"+slug)
	return nil
}

func (f *fakeSupervisor) setStatus(slug, status string) {
	p := &supervisor.Process{Name: slug}
	p.Env.Status = status
	f.processes[slug] = p
}

type fakeHealth struct {
	checked []uint
}

func (f *fakeHealth) CheckWorkspace(_ context.Context, workspaceID uint) error {
	f.checked = append(f.checked, workspaceID)
	return nil
}

func syncableExplorer() *models.Explorer {
	return &models.Explorer{
		ID:         7,
		Slug:       "ethernal",
		ShouldSync: true,
		Workspace:  &models.Workspace{ID: 3, Name: "mainnet-fork"},
		Subscription: &models.ExplorerSubscription{
			ID:               1,
			TransactionQuota: 10,
			StripePlan: &models.StripePlan{
				Slug:         "pro",
				Capabilities: datatypes.NewJSONType(models.PlanCapabilities{TxLimit: 100}),
			},
		},
	}
}

func TestDecideSyncAction(t *testing.T) {
	online := &supervisor.Process{}
	online.Env.Status = supervisor.StatusOnline
	stopped := &supervisor.Process{}
	stopped.Env.Status = supervisor.StatusStopped

	tests := []struct {
		name     string
		mutate   func(e *models.Explorer)
		process  *supervisor.Process
		expected syncAction
	}{
		{"start when desired and missing", func(e *models.Explorer) {}, nil, syncActionStart},
		{"start when desired and stopped", func(e *models.Explorer) {}, stopped, syncActionStart},
		{"nothing when desired and online", func(e *models.Explorer) {}, online, syncActionNone},
		{"stop when sync disabled", func(e *models.Explorer) { e.ShouldSync = false }, online, syncActionStop},
		{"stop without subscription", func(e *models.Explorer) { e.Subscription = nil }, online, syncActionStop},
		{"stop when quota reached", func(e *models.Explorer) { e.Subscription.TransactionQuota = 100 }, online, syncActionStop},
		{"stop when rpc unreachable", func(e *models.Explorer) {
			e.Workspace.RPCHealthCheck = &models.RPCHealthCheck{IsReachable: false}
		}, online, syncActionStop},
		{"nothing when undesired and missing", func(e *models.Explorer) { e.ShouldSync = false }, nil, syncActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := syncableExplorer()
			tt.mutate(e)
			assert.Equal(t, tt.expected, decideSyncAction(e, tt.process))
		})
	}
}

func testJob(t *testing.T, jobType JobType, payload interface{}) *Job {
	t.Helper()
	job, err := newJob(jobType, payload)
	require.NoError(t, err)
	return job
}

func TestProcessUpdateExplorerSyncJob_StartsProcess(t *testing.T) {
	set, repos := mocks.NewSet()
	sup := newFakeSupervisor()
	q := &Queue{deps: Dependencies{Repos: repos, Supervisor: sup}}

	set.Explorer.On("GetByID", uint(7)).Return(syncableExplorer(), nil)

	job := testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7})
	require.NoError(t, q.runJob(context.Background(), job))

	assert.Equal(t, []string{"start:ethernal:mainnet-fork"}, sup.calls)
	set.AssertExpectations(t)
}

func TestProcessUpdateExplorerSyncJob_StopsProcess(t *testing.T) {
	set, repos := mocks.NewSet()
	sup := newFakeSupervisor()
	sup.setStatus("ethernal", supervisor.StatusOnline)
	q := &Queue{deps: Dependencies{Repos: repos, Supervisor: sup}}

	e := syncableExplorer()
	e.ShouldSync = false
	set.Explorer.On("GetByID", uint(7)).Return(e, nil)

	job := testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7})
	require.NoError(t, q.runJob(context.Background(), job))

	assert.Equal(t, []string{"stop:ethernal"}, sup.calls)
}

type fakeUsage map[uint]int64

func (f fakeUsage) Pending(_ context.Context, explorerID uint) (int64, error) {
	return f[explorerID], nil
}

func TestProcessUpdateExplorerSyncJob_PendingUsageReachesQuota(t *testing.T) {
	set, repos := mocks.NewSet()
	sup := newFakeSupervisor()
	sup.setStatus("ethernal", supervisor.StatusOnline)
	q := &Queue{deps: Dependencies{Repos: repos, Supervisor: sup, Usage: fakeUsage{7: 90}}}

	set.Explorer.On("GetByID", uint(7)).Return(syncableExplorer(), nil)

	job := testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7})
	require.NoError(t, q.runJob(context.Background(), job))

	assert.Equal(t, []string{"stop:ethernal"}, sup.calls)
}

func TestProcessUpdateExplorerSyncJob_DeletedExplorer(t *testing.T) {
	set, repos := mocks.NewSet()
	sup := newFakeSupervisor()
	q := &Queue{deps: Dependencies{Repos: repos, Supervisor: sup}}

	set.Explorer.On("GetByID", uint(7)).Return(nil, gorm.ErrRecordNotFound)

	job := testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7, Slug: "ethernal"})
	require.NoError(t, q.runJob(context.Background(), job))
	assert.Equal(t, []string{"delete:ethernal"}, sup.calls)

	sup.calls = nil
	job = testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7})
	require.NoError(t, q.runJob(context.Background(), job))
	assert.Empty(t, sup.calls)
}

func TestProcessUpdateExplorerSyncJob_Errors(t *testing.T) {
	set, repos := mocks.NewSet()
	sup := newFakeSupervisor()
	sup.findErr = errors.New("pm2 down")
	q := &Queue{deps: Dependencies{Repos: repos, Supervisor: sup}}

	set.Explorer.On("GetByID", uint(7)).Return(syncableExplorer(), nil)
	set.Explorer.On("GetByID", uint(8)).Return(nil, errors.New("db down"))

	err := q.runJob(context.Background(), testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7}))
	assert.ErrorContains(t, err, "pm2 down")

	err = q.runJob(context.Background(), testJob(t, JobTypeUpdateExplorerSync, ExplorerSyncJobPayload{ExplorerID: 8}))
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, sup.calls)
}

func TestProcessDeleteExplorerSyncJob(t *testing.T) {
	sup := newFakeSupervisor()
	q := &Queue{deps: Dependencies{Supervisor: sup}}

	job := testJob(t, JobTypeDeleteExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7, Slug: "ethernal"})
	require.NoError(t, q.runJob(context.Background(), job))
	assert.Equal(t, []string{"delete:ethernal"}, sup.calls)

	job = testJob(t, JobTypeDeleteExplorerSync, ExplorerSyncJobPayload{ExplorerID: 7})
	assert.Error(t, q.runJob(context.Background(), job))
}

func TestProcessRPCHealthCheckJob(t *testing.T) {
	health := &fakeHealth{}
	q := &Queue{deps: Dependencies{Health: health}}

	job := testJob(t, JobTypeRPCHealthCheck, RPCHealthCheckJobPayload{WorkspaceID: 3})
	require.NoError(t, q.runJob(context.Background(), job))
	assert.Equal(t, []uint{3}, health.checked)
}

func TestRunJob_MissingDependencies(t *testing.T) {
	q := &Queue{}

	for _, jt := range []JobType{JobTypeUpdateExplorerSync, JobTypeDeleteExplorerSync, JobTypeRPCHealthCheck} {
		job := testJob(t, jt, map[string]interface{}{"explorer_id": 1, "slug": "x", "workspace_id": 1})
		assert.ErrorIs(t, q.runJob(context.Background(), job), ErrMissingDependency, string(jt))
	}
}

func TestRunJob_UnknownType(t *testing.T) {
	q := &Queue{}
	err := q.runJob(context.Background(), testJob(t, JobType("resize_image"), nil))
	assert.ErrorContains(t, err, "unknown job type")
}
