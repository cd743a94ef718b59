package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics"
)

// StripeProvider implements Provider with the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

func NewStripeProviderFromEnv() *StripeProvider {
	return NewStripeProvider(
		strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	)
}

func (p *StripeProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := p.api.Customers.Get(customerID, params)
	record("get_customer", err)
	if err != nil {
		return nil, err
	}

	hasPM := c.DefaultSource != nil
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		hasPM = true
	}
	return &Customer{ID: c.ID, HasDefaultPaymentMethod: hasPM}, nil
}

func (p *StripeProvider) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(in.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(in.PriceID)},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataExplorerID, strconv.FormatUint(uint64(in.ExplorerID), 10))

	if in.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(in.TrialDays)
		params.TrialSettings = &stripe.SubscriptionTrialSettingsParams{
			EndBehavior: &stripe.SubscriptionTrialSettingsEndBehaviorParams{
				MissingPaymentMethod: stripe.String("cancel"),
			},
		}
	}
	if in.DaysUntilDue > 0 {
		params.CollectionMethod = stripe.String(string(stripe.SubscriptionCollectionMethodSendInvoice))
		params.DaysUntilDue = stripe.Int64(in.DaysUntilDue)
	}

	s, err := p.api.Subscriptions.New(params)
	record("create_subscription", err)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeSubscription(s), nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := p.api.Subscriptions.Get(subscriptionID, params)
	record("get_subscription", err)
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(s), nil
}

func (p *StripeProvider) ChangePrice(ctx context.Context, subscriptionID, itemID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		ProrationBehavior: stripe.String("always_invoice"),
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(itemID), Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx
	s, err := p.api.Subscriptions.Update(subscriptionID, params)
	record("change_price", err)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeSubscription(s), nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	s, err := p.api.Subscriptions.Update(subscriptionID, params)
	record("cancel_at_period_end", err)
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(s), nil
}

func (p *StripeProvider) CancelNow(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := p.api.Subscriptions.Cancel(subscriptionID, params)
	record("cancel_now", err)
	return err
}

func (p *StripeProvider) ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	return toWebhookEvent(event, payload)
}

// DecodeEvent rebuilds an event from a payload whose signature was checked
// when it was received.
func (p *StripeProvider) DecodeEvent(payload []byte) (*WebhookEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if event.ID == "" {
		return nil, errors.New("event without id")
	}
	return toWebhookEvent(event, payload)
}

func toWebhookEvent(event stripe.Event, payload []byte) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type), Payload: payload}
	switch out.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		if event.Data == nil {
			return nil, errors.New("subscription event without data")
		}
		var s stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = fromStripeSubscription(&s)
		out.Subscription.Raw = append([]byte(nil), event.Data.Raw...)
	}
	return out, nil
}

func fromStripeSubscription(s *stripe.Subscription) *Subscription {
	if s == nil {
		return nil
	}
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.ItemID = item.ID
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	if raw, err := json.Marshal(s); err == nil {
		out.Raw = raw
	}
	return out
}

func translateStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("%w: %s", ErrPaymentMethod, se.Msg)
	}
	return err
}

func record(operation string, err error) {
	metrics.BillingCalls.WithLabelValues(operation, metrics.Outcome(err)).Inc()
	if err != nil {
		log.Warnf("[Billing] stripe %s failed: %v", operation, err)
	}
}
