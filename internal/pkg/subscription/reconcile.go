package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
)

var ErrUnknownPrice = errors.New("subscription price does not map to a plan")

// Reconcile applies a verified billing webhook to the local subscription
// records. Events that do not concern subscriptions are ignored.
func (c *Coordinator) Reconcile(ctx context.Context, ev *billing.WebhookEvent) error {
	if ev == nil || ev.Subscription == nil {
		return nil
	}
	switch ev.Type {
	case billing.EventSubscriptionDeleted:
		return c.reconcileDeleted(ctx, ev.Subscription)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		if !billing.IsEntitlingStatus(ev.Subscription.Status) {
			if ev.Subscription.Status == "canceled" || ev.Subscription.Status == "incomplete_expired" {
				return c.reconcileDeleted(ctx, ev.Subscription)
			}
			log.Infof("[Billing] ignoring subscription %s in status %s", ev.Subscription.ID, ev.Subscription.Status)
			return nil
		}
		return c.reconcileActive(ctx, ev.Subscription)
	default:
		return nil
	}
}

func (c *Coordinator) reconcileActive(ctx context.Context, s *billing.Subscription) error {
	plan, err := c.plans.ByPriceID(s.PriceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownPrice, s.PriceID)
		}
		return err
	}

	existing, err := c.repos.Subscription.GetByStripeID(s.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var explorerID uint
	if existing != nil {
		explorerID = existing.ExplorerID
	} else {
		id, ok := s.ExplorerID()
		if !ok {
			return fmt.Errorf("subscription %s has no %s metadata", s.ID, billing.MetadataExplorerID)
		}
		explorerID = id
	}

	// the row is looked up again under the explorer lock; a concurrent
	// StartPaid or StartTrial may have written it in the meantime
	err = c.repos.Transaction(func(tx *repository.Repositories) error {
		_, err := storeSnapshot(tx, explorerID, plan, s)
		return err
	})
	if err != nil {
		return err
	}
	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionChanged, explorerID, 0, map[string]interface{}{"plan": plan.Slug}))
	return nil
}

func (c *Coordinator) reconcileDeleted(ctx context.Context, s *billing.Subscription) error {
	existing, err := c.repos.Subscription.GetByStripeID(s.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := c.repos.Subscription.Delete(existing.ID); err != nil {
		return err
	}
	if err := c.repos.Explorer.SetShouldSync(existing.ExplorerID, false); err != nil {
		return err
	}
	if c.sync != nil {
		if err := c.sync.ScheduleSyncUpdate(ctx, existing.ExplorerID); err != nil {
			log.Warnf("[Billing] scheduling sync stop for explorer %d failed: %v", existing.ExplorerID, err)
		}
	}
	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionCanceled, existing.ExplorerID, 0, map[string]interface{}{"final": true}))
	return nil
}
