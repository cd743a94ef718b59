package subscription

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing/billingmock"
	"github.com/ManuelReschke/BlockFox/internal/pkg/config"
	"github.com/ManuelReschke/BlockFox/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
	"github.com/ManuelReschke/BlockFox/internal/pkg/plans"
)

type dbFixture struct {
	db       *gorm.DB
	provider *billingmock.MockProvider
	c        *Coordinator
	user     models.User
	plan     models.StripePlan
}

func newDBFixture(t *testing.T) *dbFixture {
	t.Helper()
	db := dbtest.Open(t)
	repos := repository.NewRepositories(db)
	f := &dbFixture{db: db, provider: new(billingmock.MockProvider)}
	cfg := &config.Config{DefaultPlanSlug: "free", DefaultTrialLength: 7, StripeSecretKey: "sk_test"}
	f.c = NewCoordinator(repos, plans.NewCatalog(repos.Plan), f.provider, &fakeScheduler{}, &events.Recorder{}, cfg)

	f.plan = models.StripePlan{Slug: "pro", Name: "Pro", Public: true, StripePriceID: "price_pro"}
	require.NoError(t, db.Create(&f.plan).Error)
	f.user = models.User{Name: "Alice", Email: "alice@example.com", Password: "secret", CanTrial: true, StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&f.user).Error)
	return f
}

func (f *dbFixture) explorer(t *testing.T, slug string) *models.Explorer {
	t.Helper()
	ws := models.Workspace{UserID: f.user.ID, Name: slug, RPCServer: "http://node:8545"}
	require.NoError(t, f.db.Create(&ws).Error)
	e := models.Explorer{UserID: f.user.ID, WorkspaceID: ws.ID, Name: slug, Slug: slug}
	require.NoError(t, f.db.Create(&e).Error)
	return &e
}

func (f *dbFixture) canTrial(t *testing.T) bool {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, f.user.ID).Error)
	return u.CanTrial
}

func (f *dbFixture) subscriptions(t *testing.T, explorerID uint) []models.ExplorerSubscription {
	t.Helper()
	var subs []models.ExplorerSubscription
	require.NoError(t, f.db.Where("explorer_id = ?", explorerID).Find(&subs).Error)
	return subs
}

func trialingSnapshot(id string, explorerID uint) *billing.Subscription {
	return &billing.Subscription{
		ID:       id,
		Status:   "trialing",
		PriceID:  "price_pro",
		Metadata: map[string]string{billing.MetadataExplorerID: strconv.FormatUint(uint64(explorerID), 10)},
		Raw:      []byte(`{"id":"` + id + `"}`),
	}
}

func forExplorer(id uint) interface{} {
	return mock.MatchedBy(func(in billing.CreateSubscriptionInput) bool { return in.ExplorerID == id })
}

func TestStartTrialWithStaleUsersStartsOneTrial(t *testing.T) {
	f := newDBFixture(t)
	alpha := f.explorer(t, "alpha")
	beta := f.explorer(t, "beta")
	f.provider.On("CreateSubscription", mock.Anything, forExplorer(alpha.ID)).Return(trialingSnapshot("sub_alpha", alpha.ID), nil)

	// both requests authenticated before either trial started
	first, second := f.user, f.user

	_, err := f.c.StartTrial(context.Background(), &first, alpha.ID, "pro")
	require.NoError(t, err)

	_, err = f.c.StartTrial(context.Background(), &second, beta.ID, "pro")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	f.provider.AssertNumberOfCalls(t, "CreateSubscription", 1)
	assert.False(t, f.canTrial(t))
	assert.Len(t, f.subscriptions(t, alpha.ID), 1)
	assert.Empty(t, f.subscriptions(t, beta.ID))
}

func TestStartTrialAdoptsRecordWrittenByWebhook(t *testing.T) {
	f := newDBFixture(t)
	alpha := f.explorer(t, "alpha")
	snapshot := trialingSnapshot("sub_alpha", alpha.ID)

	f.provider.On("CreateSubscription", mock.Anything, forExplorer(alpha.ID)).Run(func(mock.Arguments) {
		// the created event is delivered before the billing call returns
		require.NoError(t, f.c.Reconcile(context.Background(), &billing.WebhookEvent{
			Type:         billing.EventSubscriptionCreated,
			Subscription: snapshot,
		}))
	}).Return(snapshot, nil)

	user := f.user
	sub, err := f.c.StartTrial(context.Background(), &user, alpha.ID, "pro")
	require.NoError(t, err)
	assert.Equal(t, "sub_alpha", sub.StripeSubscriptionID())
	assert.True(t, sub.IsTrialing)

	stored := f.subscriptions(t, alpha.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, sub.ID, stored[0].ID)
	assert.False(t, f.canTrial(t))
}

func TestStartTrialBillingFailureKeepsTrial(t *testing.T) {
	f := newDBFixture(t)
	alpha := f.explorer(t, "alpha")
	f.provider.On("CreateSubscription", mock.Anything, mock.Anything).Return(nil, billing.ErrPaymentMethod)

	user := f.user
	_, err := f.c.StartTrial(context.Background(), &user, alpha.ID, "pro")
	assert.True(t, apperr.Is(err, apperr.KindPaymentMethodMissing))
	assert.True(t, f.canTrial(t))
	assert.True(t, user.CanTrial)
	assert.Empty(t, f.subscriptions(t, alpha.ID))
}

func TestChangeSubscriptionKeepsUsageFlushedMeanwhile(t *testing.T) {
	f := newDBFixture(t)
	alpha := f.explorer(t, "alpha")
	team := models.StripePlan{Slug: "team", Name: "Team", Public: true, StripePriceID: "price_team"}
	require.NoError(t, f.db.Create(&team).Error)
	stripeID := "sub_alpha"
	require.NoError(t, f.db.Create(&models.ExplorerSubscription{
		ExplorerID: alpha.ID, StripePlanID: f.plan.ID, StripeID: &stripeID, TransactionQuota: 100,
	}).Error)

	f.provider.On("GetSubscription", mock.Anything, stripeID).Return(&billing.Subscription{ID: stripeID, ItemID: "si_1", PriceID: "price_pro"}, nil)
	f.provider.On("ChangePrice", mock.Anything, stripeID, "si_1", "price_team").Run(func(mock.Arguments) {
		require.NoError(t, f.db.Model(&models.ExplorerSubscription{}).
			Where("explorer_id = ?", alpha.ID).
			UpdateColumn("transaction_quota", gorm.Expr("transaction_quota + ?", 400)).Error)
	}).Return(&billing.Subscription{ID: stripeID, Raw: []byte(`{"id":"sub_alpha"}`)}, nil)

	user := f.user
	_, err := f.c.ChangeSubscription(context.Background(), &user, alpha.ID, "team")
	require.NoError(t, err)

	stored := f.subscriptions(t, alpha.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(500), stored[0].TransactionQuota)
	assert.Equal(t, team.ID, stored[0].StripePlanID)
}
