// Package billingmock provides a testify mock of billing.Provider.
package billingmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

func (m *MockProvider) CreateSubscription(ctx context.Context, in billing.CreateSubscriptionInput) (*billing.Subscription, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockProvider) GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockProvider) ChangePrice(ctx context.Context, subscriptionID, itemID, priceID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID, itemID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockProvider) CancelNow(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *MockProvider) ParseWebhook(payload []byte, signatureHeader string) (*billing.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookEvent), args.Error(1)
}
