package controllers

import (
	"context"
	"errors"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/assets"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BlockFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BlockFox/internal/pkg/lifecycle"
)

type mockExplorers struct{ mock.Mock }

func (m *mockExplorers) explorer(args mock.Arguments) (*models.Explorer, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *mockExplorers) Create(_ context.Context, user *models.User, in lifecycle.CreateInput) (*models.Explorer, error) {
	return m.explorer(m.Called(user.ID, in))
}

func (m *mockExplorers) Get(_ context.Context, user *models.User, explorerID uint) (*models.Explorer, error) {
	return m.explorer(m.Called(user.ID, explorerID))
}

func (m *mockExplorers) List(_ context.Context, user *models.User) ([]models.Explorer, error) {
	args := m.Called(user.ID)
	return args.Get(0).([]models.Explorer), args.Error(1)
}

func (m *mockExplorers) Delete(_ context.Context, user *models.User, explorerID uint) error {
	return m.Called(user.ID, explorerID).Error(0)
}

func (m *mockExplorers) UpdateSettings(_ context.Context, user *models.User, explorerID uint, in lifecycle.SettingsInput) (*models.Explorer, error) {
	return m.explorer(m.Called(user.ID, explorerID, in))
}

func (m *mockExplorers) UpdateBranding(_ context.Context, user *models.User, explorerID uint, branding models.ExplorerBranding) (*models.Explorer, error) {
	return m.explorer(m.Called(user.ID, explorerID, branding))
}

func (m *mockExplorers) SetBrandingAsset(_ context.Context, user *models.User, explorerID uint, kind, url string) (*models.Explorer, error) {
	return m.explorer(m.Called(user.ID, explorerID, kind, url))
}

func (m *mockExplorers) AddDomain(_ context.Context, user *models.User, explorerID uint, domain string) (*models.ExplorerDomain, error) {
	args := m.Called(user.ID, explorerID, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExplorerDomain), args.Error(1)
}

func (m *mockExplorers) RemoveDomain(_ context.Context, user *models.User, explorerID, domainID uint) error {
	return m.Called(user.ID, explorerID, domainID).Error(0)
}

func (m *mockExplorers) StartSync(_ context.Context, user *models.User, explorerID uint) error {
	return m.Called(user.ID, explorerID).Error(0)
}

func (m *mockExplorers) StopSync(_ context.Context, user *models.User, explorerID uint) error {
	return m.Called(user.ID, explorerID).Error(0)
}

func (m *mockExplorers) SyncStatus(_ context.Context, user *models.User, explorerID uint) (string, error) {
	args := m.Called(user.ID, explorerID)
	return args.String(0), args.Error(1)
}

func (m *mockExplorers) PublicLookup(_ context.Context, host string) (*entitlements.PublicExplorer, error) {
	args := m.Called(host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlements.PublicExplorer), args.Error(1)
}

func (m *mockExplorers) RefreshAll(_ context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockExplorers) RecordUsage(_ context.Context, explorerID uint, transactions int64) error {
	return m.Called(explorerID, transactions).Error(0)
}

type mockSubscriptions struct{ mock.Mock }

func (m *mockSubscriptions) sub(args mock.Arguments) (*models.ExplorerSubscription, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExplorerSubscription), args.Error(1)
}

func (m *mockSubscriptions) StartTrial(_ context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	return m.sub(m.MethodCalled("trial", user.ID, explorerID, planSlug))
}

func (m *mockSubscriptions) StartSubscription(_ context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	return m.sub(m.MethodCalled("start", user.ID, explorerID, planSlug))
}

func (m *mockSubscriptions) ChangeSubscription(_ context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	return m.sub(m.MethodCalled("change", user.ID, explorerID, planSlug))
}

func (m *mockSubscriptions) CancelSubscription(_ context.Context, user *models.User, explorerID uint) (*models.ExplorerSubscription, error) {
	return m.sub(m.MethodCalled("cancel", user.ID, explorerID))
}

func (m *mockSubscriptions) StartCryptoSubscription(_ context.Context, user *models.User, explorerID uint, planSlug string) error {
	return m.MethodCalled("crypto", user.ID, explorerID, planSlug).Error(0)
}

func (m *mockSubscriptions) Reconcile(_ context.Context, ev *billing.WebhookEvent) error {
	return m.Called(ev).Error(0)
}

type fakePlans struct {
	plans []models.StripePlan
	err   error
}

func (f fakePlans) Public() ([]models.StripePlan, error) { return f.plans, f.err }

type fakeUploader struct {
	url   string
	kinds []assets.Kind
}

func (f *fakeUploader) Upload(_ context.Context, _ uint, kind assets.Kind, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.kinds = append(f.kinds, kind)
	return f.url, nil
}

type fakeQueue struct{}

func (fakeQueue) GetJobStats(context.Context) (map[jobqueue.JobStatus]int64, error) {
	return map[jobqueue.JobStatus]int64{jobqueue.JobStatusCompleted: 4}, nil
}
func (fakeQueue) GetQueueSize(context.Context) (int64, error)      { return 2, nil }
func (fakeQueue) GetProcessingSize(context.Context) (int64, error) { return 1, nil }

type fakeWebhooks struct {
	seen      map[string]bool
	processed map[uint]string
	pending   []models.WebhookEvent
	nextID    uint
}

func newFakeWebhooks() *fakeWebhooks {
	return &fakeWebhooks{seen: map[string]bool{}, processed: map[uint]string{}}
}

func (f *fakeWebhooks) Record(_ context.Context, in billing.JournalEntry) (bool, *models.WebhookEvent, error) {
	key := in.EventID
	if key == "" {
		key = string(in.Payload)
	}
	if f.seen[key] {
		return false, nil, nil
	}
	f.seen[key] = true
	f.nextID++
	return true, &models.WebhookEvent{ID: f.nextID, StripeEventID: in.EventID, StripeSubscriptionID: in.SubscriptionID}, nil
}

func (f *fakeWebhooks) Finish(_ context.Context, id uint, processingErr error) error {
	f.processed[id] = ""
	if processingErr != nil {
		f.processed[id] = processingErr.Error()
	}
	return nil
}

func (f *fakeWebhooks) Pending(context.Context, int) ([]models.WebhookEvent, error) {
	return f.pending, nil
}

type fakeParser struct {
	event   *billing.WebhookEvent
	err     error
	decoded map[string]*billing.WebhookEvent
}

func (f fakeParser) ParseWebhook([]byte, string) (*billing.WebhookEvent, error) {
	return f.event, f.err
}

func (f fakeParser) DecodeEvent(payload []byte) (*billing.WebhookEvent, error) {
	if ev, ok := f.decoded[string(payload)]; ok {
		return ev, nil
	}
	return nil, errors.New("undecodable payload")
}
