package billing

import (
	"context"
	"errors"
)

// Event types handled by the webhook endpoint.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// MetadataExplorerID is the subscription metadata key linking it to an explorer.
const MetadataExplorerID = "explorer_id"

var (
	ErrPaymentMethod = errors.New("billing: payment method rejected")
	ErrNotConfigured = errors.New("billing: provider not configured")
)

// Provider is the external billing system.
type Provider interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ChangePrice swaps the price of the single subscription item, clears a
	// scheduled cancelation and invoices the proration immediately.
	ChangePrice(ctx context.Context, subscriptionID, itemID, priceID string) (*Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*Subscription, error)
	// CancelNow ends the subscription immediately, without proration.
	CancelNow(ctx context.Context, subscriptionID string) error
	ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
