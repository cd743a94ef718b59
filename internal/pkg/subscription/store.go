package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
)

// ErrSubscriptionExists is returned when an explorer already carries another
// subscription.
var ErrSubscriptionExists = errors.New("explorer already has a subscription")

// ensureUnsubscribed locks the explorer and fails with ErrSubscriptionExists
// when a subscription record exists for it.
func ensureUnsubscribed(tx *repository.Repositories, explorerID uint) error {
	if err := tx.Explorer.LockForUpdate(explorerID); err != nil {
		return err
	}
	_, err := tx.Subscription.GetByExplorerID(explorerID)
	switch {
	case err == nil:
		return ErrSubscriptionExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

// storeSnapshot mirrors a billing subscription onto the explorer's record
// under the explorer lock. The row already holding the billing id is updated
// and a locally granted plan is taken over; otherwise a new row is inserted.
func storeSnapshot(tx *repository.Repositories, explorerID uint, plan *models.StripePlan, s *billing.Subscription) (*models.ExplorerSubscription, error) {
	if err := tx.Explorer.LockForUpdate(explorerID); err != nil {
		return nil, err
	}

	sub, err := tx.Subscription.GetByStripeID(s.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if sub == nil {
		current, err := tx.Subscription.GetByExplorerID(explorerID)
		switch {
		case err == nil && !current.HasStripeSubscription():
			sub = current
		case err == nil:
			return nil, fmt.Errorf("%w: explorer %d is on %s", ErrSubscriptionExists, explorerID, current.StripeSubscriptionID())
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	created := sub == nil
	if created {
		sub = &models.ExplorerSubscription{ExplorerID: explorerID}
	}
	id := s.ID
	sub.StripeID = &id
	sub.StripePlanID = plan.ID
	sub.StripePlan = nil
	sub.IsPendingCancelation = s.CancelAtPeriodEnd
	sub.IsTrialing = s.IsTrialing()
	sub.CycleEndsAt = s.CurrentPeriodEnd
	sub.StripeObject = datatypes.JSON(s.Raw)

	if created {
		err = tx.Subscription.Create(sub)
	} else {
		err = tx.Subscription.UpdateBilling(sub)
	}
	if err != nil {
		return nil, err
	}
	sub.StripePlan = plan
	return sub, nil
}

// abandon cancels a billing subscription that could not be recorded locally.
func (c *Coordinator) abandon(ctx context.Context, subscriptionID string) {
	if err := c.billing.CancelNow(ctx, subscriptionID); err != nil {
		log.Errorf("[Billing] canceling unrecorded subscription %s failed: %v", subscriptionID, err)
	}
}
