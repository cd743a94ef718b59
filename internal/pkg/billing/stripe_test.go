package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

const subscriptionEventPayload = `{
  "id": "evt_123",
  "object": "event",
  "type": "customer.subscription.updated",
  "data": {
    "object": {
      "id": "sub_123",
      "object": "subscription",
      "status": "active",
      "cancel_at_period_end": true,
      "current_period_end": 1767225600,
      "customer": "cus_123",
      "metadata": {"explorer_id": "7"},
      "items": {
        "object": "list",
        "data": [{"id": "si_123", "object": "subscription_item", "price": {"id": "price_pro", "object": "price"}}]
      }
    }
  }
}`

func signedHeader(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestStripeParseWebhook(t *testing.T) {
	p := NewStripeProvider("sk_test", testWebhookSecret)
	payload := []byte(subscriptionEventPayload)

	event, err := p.ParseWebhook(payload, signedHeader(payload, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_123", event.ID)
	assert.Equal(t, EventSubscriptionUpdated, event.Type)
	require.NotNil(t, event.Subscription)
	assert.Equal(t, "sub_123", event.Subscription.ID)
	assert.Equal(t, "cus_123", event.Subscription.CustomerID)
	assert.Equal(t, "si_123", event.Subscription.ItemID)
	assert.Equal(t, "price_pro", event.Subscription.PriceID)
	assert.True(t, event.Subscription.CancelAtPeriodEnd)
	require.NotNil(t, event.Subscription.CurrentPeriodEnd)
	assert.Equal(t, int64(1767225600), event.Subscription.CurrentPeriodEnd.Unix())

	id, ok := event.Subscription.ExplorerID()
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)
}

func TestStripeParseWebhookRejectsBadSignature(t *testing.T) {
	p := NewStripeProvider("sk_test", testWebhookSecret)
	payload := []byte(subscriptionEventPayload)

	_, err := p.ParseWebhook(payload, signedHeader(payload, "whsec_other"))
	assert.Error(t, err)
}

func TestStripeParseWebhookRequiresSecret(t *testing.T) {
	p := NewStripeProvider("sk_test", "")
	_, err := p.ParseWebhook([]byte(subscriptionEventPayload), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeDecodeEvent(t *testing.T) {
	p := NewStripeProvider("sk_test", "")

	event, err := p.DecodeEvent([]byte(subscriptionEventPayload))
	require.NoError(t, err)
	assert.Equal(t, "evt_123", event.ID)
	require.NotNil(t, event.Subscription)
	assert.Equal(t, "sub_123", event.Subscription.ID)

	_, err = p.DecodeEvent([]byte(`{"type":"invoice.paid"}`))
	assert.Error(t, err)

	_, err = p.DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestTranslateStripeError(t *testing.T) {
	cardErr := &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "card declined"}
	assert.ErrorIs(t, translateStripeError(cardErr), ErrPaymentMethod)

	apiErr := &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "boom"}
	assert.False(t, errors.Is(translateStripeError(apiErr), ErrPaymentMethod))
}
