package repository

import (
	"github.com/ManuelReschke/BlockFox/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.ExplorerSubscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByExplorerID(explorerID uint) (*models.ExplorerSubscription, error) {
	var sub models.ExplorerSubscription
	err := r.db.Preload("StripePlan").
		Where("explorer_id = ?", explorerID).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByStripeID(stripeID string) (*models.ExplorerSubscription, error) {
	var sub models.ExplorerSubscription
	if err := r.db.Preload("StripePlan").Where("stripe_id = ?", stripeID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// billingColumns are the columns a billing snapshot owns. transaction_quota
// is only ever moved by the usage flush.
var billingColumns = []string{
	"stripe_plan_id",
	"stripe_id",
	"is_pending_cancelation",
	"is_trialing",
	"cycle_ends_at",
	"stripe_object",
}

func (r *subscriptionRepository) UpdateBilling(sub *models.ExplorerSubscription) error {
	return r.db.Model(sub).Select(billingColumns).Updates(sub).Error
}

func (r *subscriptionRepository) MarkPendingCancelation(id uint) error {
	return r.db.Model(&models.ExplorerSubscription{}).Where("id = ?", id).Update("is_pending_cancelation", true).Error
}

func (r *subscriptionRepository) RevertCancelation(id uint) error {
	return r.db.Model(&models.ExplorerSubscription{}).Where("id = ?", id).Update("is_pending_cancelation", false).Error
}

// Delete soft-deletes the record; cancelled subscriptions stay queryable unscoped.
func (r *subscriptionRepository) Delete(id uint) error {
	return r.db.Delete(&models.ExplorerSubscription{}, id).Error
}
