package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
)

// HandleStripeWebhook journals every delivery once and applies subscription
// events to the local records. Redeliveries are acknowledged without
// reprocessing.
func (a *API) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	event, parseErr := a.Billing.ParseWebhook(rawBody, signature)
	entry := billing.JournalEntry{Payload: rawBody, SignatureValid: parseErr == nil}
	if event != nil {
		entry.EventID = event.ID
		entry.Type = event.Type
		if event.Subscription != nil {
			entry.SubscriptionID = event.Subscription.ID
		}
	}

	created, stored, err := a.Webhooks.Record(ctx, entry)
	if err != nil {
		log.Errorf("[Billing] Failed to journal webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if parseErr != nil {
		_ = a.Webhooks.Finish(ctx, stored.ID, parseErr)
		log.Warnf("[Billing] Rejected webhook: %v", parseErr)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	if err := a.apply(ctx, stored.ID, event); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleReplayWebhooks re-applies authentic deliveries that failed before,
// e.g. because the plan behind a price did not exist yet.
func (a *API) HandleReplayWebhooks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	pending, err := a.Webhooks.Pending(ctx, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}

	replayed, failed := 0, 0
	for _, stored := range pending {
		event, err := a.Billing.DecodeEvent([]byte(stored.Payload))
		if err != nil {
			_ = a.Webhooks.Finish(ctx, stored.ID, err)
			failed++
			continue
		}
		if err := a.apply(ctx, stored.ID, event); err != nil {
			failed++
			continue
		}
		replayed++
	}
	return c.JSON(fiber.Map{"replayed": replayed, "failed": failed})
}

func (a *API) apply(ctx context.Context, journalID uint, event *billing.WebhookEvent) error {
	err := a.Subscriptions.Reconcile(ctx, event)
	if err != nil {
		log.Errorf("[Billing] Failed to process %s (%s): %v", event.Type, event.ID, err)
	}
	if ferr := a.Webhooks.Finish(ctx, journalID, err); ferr != nil {
		log.Warnf("[Billing] Failed to update journal entry %d: %v", journalID, ferr)
	}
	return err
}
