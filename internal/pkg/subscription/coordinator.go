// Package subscription coordinates explorer subscriptions between the local
// database and the billing provider.
package subscription

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/config"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
	"github.com/ManuelReschke/BlockFox/internal/pkg/plans"
)

// SyncScheduler applies the desired sync state of an explorer asynchronously.
type SyncScheduler interface {
	ScheduleSyncUpdate(ctx context.Context, explorerID uint) error
}

type Coordinator struct {
	repos   *repository.Repositories
	plans   *plans.Catalog
	billing billing.Provider
	sync    SyncScheduler
	events  events.Publisher
	cfg     *config.Config
}

func NewCoordinator(
	repos *repository.Repositories,
	catalog *plans.Catalog,
	provider billing.Provider,
	sync SyncScheduler,
	publisher events.Publisher,
	cfg *config.Config,
) *Coordinator {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Coordinator{repos: repos, plans: catalog, billing: provider, sync: sync, events: publisher, cfg: cfg}
}

// ChangeSubscription moves the explorer to another public plan. A pending
// cancelation can only be reverted by re-selecting the current plan.
func (c *Coordinator) ChangeSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	const op = "subscription.Change"
	slug := strings.TrimSpace(planSlug)
	if slug == "" {
		return nil, apperr.InvalidInput(op, "Missing plan slug.")
	}

	explorer, err := c.ownedExplorer(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	sub := explorer.Subscription
	if sub == nil {
		return nil, apperr.NotFound(op, "Couldn't find subscription.")
	}
	if sub.IsPendingCancelation && (sub.StripePlan == nil || sub.StripePlan.Slug != slug) {
		return nil, apperr.Conflict(op, "Revert the cancelation before switching to another plan.")
	}

	plan, err := c.publicPlan(op, slug)
	if err != nil {
		return nil, err
	}

	if sub.HasStripeSubscription() {
		current, err := c.billing.GetSubscription(ctx, sub.StripeSubscriptionID())
		if err != nil {
			return nil, billingError(op, err)
		}
		updated, err := c.billing.ChangePrice(ctx, current.ID, current.ItemID, plan.StripePriceID)
		if err != nil {
			return nil, billingError(op, err)
		}
		sub.StripeObject = datatypes.JSON(updated.Raw)
		sub.CycleEndsAt = updated.CurrentPeriodEnd
	}

	err = c.repos.Transaction(func(tx *repository.Repositories) error {
		if sub.IsPendingCancelation {
			sub.IsPendingCancelation = false
			return tx.Subscription.RevertCancelation(sub.ID)
		}
		sub.StripePlanID = plan.ID
		sub.StripePlan = plan
		return tx.Subscription.UpdateBilling(sub)
	})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionChanged, explorer.ID, user.ID, map[string]interface{}{"plan": plan.Slug}))
	return sub, nil
}

// CancelSubscription schedules the cancelation at the end of the billing
// period. The explorer keeps its subscription until then.
func (c *Coordinator) CancelSubscription(ctx context.Context, user *models.User, explorerID uint) (*models.ExplorerSubscription, error) {
	const op = "subscription.Cancel"
	explorer, err := c.ownedExplorer(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	sub := explorer.Subscription
	if sub == nil {
		return nil, apperr.NotFound(op, "Couldn't find subscription.")
	}

	if sub.HasStripeSubscription() {
		updated, err := c.billing.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID())
		if err != nil {
			return nil, billingError(op, err)
		}
		if updated.CurrentPeriodEnd != nil {
			sub.CycleEndsAt = updated.CurrentPeriodEnd
		}
	}

	if err := c.repos.Subscription.MarkPendingCancelation(sub.ID); err != nil {
		return nil, apperr.Internal(op, err)
	}
	sub.IsPendingCancelation = true

	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionCanceled, explorer.ID, user.ID, nil))
	return sub, nil
}

// StartCryptoSubscription creates an invoiced subscription. The local record
// is written when the provider confirms it through a webhook.
func (c *Coordinator) StartCryptoSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) error {
	const op = "subscription.StartCrypto"
	if !user.CryptoPaymentEnabled {
		return apperr.Forbidden(op, "Crypto payment is not available for your account.")
	}
	slug := strings.TrimSpace(planSlug)
	if slug == "" {
		return apperr.InvalidInput(op, "Missing plan slug.")
	}
	explorer, err := c.ownedExplorer(op, user, explorerID)
	if err != nil {
		return err
	}
	plan, err := c.publicPlan(op, slug)
	if err != nil {
		return err
	}
	return c.createInvoiced(ctx, op, user, explorer, plan)
}

// StartSubscription starts a paid subscription on an explorer that has none.
func (c *Coordinator) StartSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	const op = "subscription.Start"
	explorer, err := c.ownedExplorer(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	if explorer.HasSubscription() {
		return nil, apperr.Conflict(op, "Explorer already has a subscription.")
	}
	return c.StartPaid(ctx, user, explorer, planSlug)
}

// StartPaid creates the billing subscription for a freshly created or
// unsubscribed explorer. Crypto-eligible users are invoiced, everybody else is
// charged on their default payment method.
func (c *Coordinator) StartPaid(ctx context.Context, user *models.User, explorer *models.Explorer, planSlug string) (*models.ExplorerSubscription, error) {
	const op = "subscription.StartPaid"
	slug := strings.TrimSpace(planSlug)
	if slug == "" {
		return nil, apperr.InvalidInput(op, "Missing plan slug.")
	}
	plan, err := c.publicPlan(op, slug)
	if err != nil {
		return nil, err
	}

	if user.CryptoPaymentEnabled {
		return nil, c.createInvoiced(ctx, op, user, explorer, plan)
	}

	if !user.HasStripeCustomer() {
		return nil, apperr.PaymentMethodMissing(op, "Add a payment method to start a subscription.")
	}
	customer, err := c.billing.GetCustomer(ctx, user.StripeCustomerID)
	if err != nil {
		return nil, billingError(op, err)
	}
	if !customer.HasDefaultPaymentMethod {
		return nil, apperr.PaymentMethodMissing(op, "Add a payment method to start a subscription.")
	}

	if err := c.repos.Transaction(func(tx *repository.Repositories) error {
		return ensureUnsubscribed(tx, explorer.ID)
	}); err != nil {
		return nil, claimError(op, err)
	}

	created, err := c.billing.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		CustomerID: customer.ID,
		PriceID:    plan.StripePriceID,
		ExplorerID: explorer.ID,
	})
	if err != nil {
		return nil, billingError(op, err)
	}

	sub, err := c.record(ctx, op, explorer.ID, plan, created)
	if err != nil {
		return nil, err
	}

	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionChanged, explorer.ID, user.ID, map[string]interface{}{"plan": plan.Slug}))
	return sub, nil
}

// StartTrial starts a trial subscription. The trial is claimed before the
// billing call, so concurrent requests of one user cannot both start a trial;
// it is handed back when the billing subscription fails.
func (c *Coordinator) StartTrial(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error) {
	const op = "subscription.StartTrial"
	slug := strings.TrimSpace(planSlug)
	if slug == "" {
		return nil, apperr.InvalidInput(op, "Missing plan slug.")
	}
	if !user.CanTrial {
		return nil, apperr.Forbidden(op, "You've already used your trial.")
	}

	explorer, err := c.ownedExplorer(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	plan, err := c.plans.BySlug(slug)
	if err != nil {
		return nil, lookupError(op, "Couldn't find plan.", err)
	}
	if explorer.HasSubscription() {
		return nil, apperr.Conflict(op, "Explorer already has a subscription.")
	}
	if !user.HasStripeCustomer() {
		return nil, apperr.PaymentMethodMissing(op, "No billing customer is linked to your account.")
	}

	if err := c.repos.Transaction(func(tx *repository.Repositories) error {
		if err := ensureUnsubscribed(tx, explorer.ID); err != nil {
			return err
		}
		return tx.User.DisableTrial(user.ID)
	}); err != nil {
		return nil, claimError(op, err)
	}
	user.CanTrial = false

	created, err := c.billing.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		CustomerID: user.StripeCustomerID,
		PriceID:    plan.StripePriceID,
		ExplorerID: explorer.ID,
		TrialDays:  c.cfg.DefaultTrialLength,
	})
	if err != nil {
		c.restoreTrial(user)
		return nil, billingError(op, err)
	}

	sub, err := c.record(ctx, op, explorer.ID, plan, created)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			c.restoreTrial(user)
		}
		return nil, err
	}

	events.PublishSafe(ctx, c.events, events.New(events.SubscriptionTrialStart, explorer.ID, user.ID, map[string]interface{}{"plan": plan.Slug}))
	return sub, nil
}

// record stores a billing subscription created for the explorer. One that
// lost the explorer to a concurrent subscription is canceled again.
func (c *Coordinator) record(ctx context.Context, op string, explorerID uint, plan *models.StripePlan, created *billing.Subscription) (*models.ExplorerSubscription, error) {
	var sub *models.ExplorerSubscription
	err := c.repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		sub, err = storeSnapshot(tx, explorerID, plan, created)
		return err
	})
	if errors.Is(err, ErrSubscriptionExists) {
		c.abandon(ctx, created.ID)
		return nil, apperr.Conflict(op, "Explorer already has a subscription.")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return sub, nil
}

func (c *Coordinator) restoreTrial(user *models.User) {
	if err := c.repos.User.RestoreTrial(user.ID); err != nil {
		log.Errorf("[Billing] restoring trial of user %d failed: %v", user.ID, err)
		return
	}
	user.CanTrial = true
}

// AttachDefaultPlan grants the default plan locally, without a billing call.
func (c *Coordinator) AttachDefaultPlan(tx *repository.Repositories, explorerID uint) (*models.ExplorerSubscription, error) {
	const op = "subscription.AttachDefault"
	plan, err := c.plans.BySlug(c.cfg.DefaultPlanSlug)
	if err != nil {
		return nil, lookupError(op, "Couldn't find default plan.", err)
	}
	sub := &models.ExplorerSubscription{ExplorerID: explorerID, StripePlanID: plan.ID}
	if err := tx.Subscription.Create(sub); err != nil {
		return nil, apperr.Internal(op, err)
	}
	sub.StripePlan = plan
	return sub, nil
}

func (c *Coordinator) createInvoiced(ctx context.Context, op string, user *models.User, explorer *models.Explorer, plan *models.StripePlan) error {
	if !user.HasStripeCustomer() {
		return apperr.PaymentMethodMissing(op, "No billing customer is linked to your account.")
	}
	_, err := c.billing.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		CustomerID:   user.StripeCustomerID,
		PriceID:      plan.StripePriceID,
		ExplorerID:   explorer.ID,
		DaysUntilDue: c.cfg.CryptoDaysUntilDue,
	})
	if err != nil {
		return billingError(op, err)
	}
	log.Infof("[Billing] invoiced subscription requested for explorer %d on plan %s", explorer.ID, plan.Slug)
	return nil
}

func (c *Coordinator) ownedExplorer(op string, user *models.User, explorerID uint) (*models.Explorer, error) {
	explorer, err := c.repos.Explorer.GetByIDForUser(user.ID, explorerID)
	if err != nil {
		return nil, lookupError(op, "Couldn't find explorer.", err)
	}
	return explorer, nil
}

func (c *Coordinator) publicPlan(op, slug string) (*models.StripePlan, error) {
	plan, ok, err := c.plans.PublicBySlug(slug)
	if err != nil {
		return nil, lookupError(op, "Couldn't find plan.", err)
	}
	if !ok {
		return nil, apperr.NotFound(op, "Couldn't find plan.")
	}
	return plan, nil
}

func lookupError(op, message string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op, message)
	}
	return apperr.Internal(op, err)
}

// claimError maps the outcome of reserving an explorer (and a trial) for a
// new subscription.
func claimError(op string, err error) error {
	switch {
	case errors.Is(err, ErrSubscriptionExists):
		return apperr.Conflict(op, "Explorer already has a subscription.")
	case errors.Is(err, repository.ErrTrialConsumed):
		return apperr.Forbidden(op, "You've already used your trial.")
	default:
		return lookupError(op, "Couldn't find explorer.", err)
	}
}

func billingError(op string, err error) error {
	if errors.Is(err, billing.ErrPaymentMethod) {
		return apperr.Wrap(apperr.KindPaymentMethodMissing, op, "Your payment method was declined.", err)
	}
	return apperr.UpstreamUnreachable(op, "Billing provider request failed.", err)
}
