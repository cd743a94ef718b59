package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/database/dbtest"
)

func TestDisableTrialFlipsOnce(t *testing.T) {
	db := dbtest.Open(t)
	repos := NewRepositories(db)
	user := models.User{Name: "Alice", Email: "alice@example.com", Password: "secret", CanTrial: true}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, repos.User.DisableTrial(user.ID))
	assert.ErrorIs(t, repos.User.DisableTrial(user.ID), ErrTrialConsumed)

	got, err := repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, got.CanTrial)

	require.NoError(t, repos.User.RestoreTrial(user.ID))
	got, err = repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.CanTrial)
}

func TestDisableTrialRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repos := NewRepositories(db)
	user := models.User{Name: "Alice", Email: "alice@example.com", Password: "secret", CanTrial: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, repos.User.DisableTrial(user.ID))

	err := repos.Transaction(func(tx *Repositories) error {
		return tx.User.DisableTrial(user.ID)
	})
	assert.ErrorIs(t, err, ErrTrialConsumed)
}

func TestSubscriptionUpdateBillingKeepsTransactionQuota(t *testing.T) {
	db := dbtest.Open(t)
	repos := NewRepositories(db)

	free := models.StripePlan{Slug: "free", Name: "Free", Public: true}
	pro := models.StripePlan{Slug: "pro", Name: "Pro", Public: true, StripePriceID: "price_pro"}
	require.NoError(t, db.Create(&free).Error)
	require.NoError(t, db.Create(&pro).Error)

	sub := &models.ExplorerSubscription{ExplorerID: 10, StripePlanID: free.ID}
	require.NoError(t, repos.Subscription.Create(sub))

	// a usage flush lands after sub was read
	require.NoError(t, db.Model(&models.ExplorerSubscription{}).
		Where("id = ?", sub.ID).
		UpdateColumn("transaction_quota", 500).Error)

	stripeID := "sub_1"
	sub.StripeID = &stripeID
	sub.StripePlanID = pro.ID
	sub.StripePlan = &pro
	sub.IsPendingCancelation = true
	require.NoError(t, repos.Subscription.UpdateBilling(sub))

	got, err := repos.Subscription.GetByExplorerID(10)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TransactionQuota)
	assert.Equal(t, pro.ID, got.StripePlanID)
	assert.Equal(t, "sub_1", got.StripeSubscriptionID())
	assert.True(t, got.IsPendingCancelation)

	var plans int64
	require.NoError(t, db.Model(&models.StripePlan{}).Count(&plans).Error)
	assert.Equal(t, int64(2), plans)
}

func TestWorkspaceDuplicateNameIsDuplicatedKey(t *testing.T) {
	db := dbtest.Open(t)
	repos := NewRepositories(db)

	require.NoError(t, repos.Workspace.Create(&models.Workspace{UserID: 1, Name: "acme", RPCServer: "http://node:8545"}))
	err := repos.Workspace.Create(&models.Workspace{UserID: 1, Name: "acme", RPCServer: "http://other:8545"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	require.NoError(t, repos.Workspace.Create(&models.Workspace{UserID: 2, Name: "acme", RPCServer: "http://node:8545"}))
}
