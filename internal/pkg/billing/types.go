package billing

import "time"

// Customer is the billing-provider customer as far as this service cares.
type Customer struct {
	ID                      string
	HasDefaultPaymentMethod bool
}

// Subscription is the provider-neutral view of an external subscription.
type Subscription struct {
	ID                string
	Status            string
	CustomerID        string
	ItemID            string
	PriceID           string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	Metadata          map[string]string
	Raw               []byte
}

// CreateSubscriptionInput describes a new subscription for an explorer.
type CreateSubscriptionInput struct {
	CustomerID string
	PriceID    string
	ExplorerID uint
	// TrialDays > 0 starts a trial that cancels at its end when the customer
	// has no payment method.
	TrialDays int64
	// DaysUntilDue > 0 bills by invoice instead of charging the default
	// payment method.
	DaysUntilDue int64
}

// WebhookEvent is a verified provider event.
type WebhookEvent struct {
	ID           string
	Type         string
	Subscription *Subscription
	Payload      []byte
}
