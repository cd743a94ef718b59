package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", " ACTIVE "} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "incomplete", "incomplete_expired", "paused", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestSubscriptionExplorerID(t *testing.T) {
	tests := []struct {
		name   string
		sub    *Subscription
		wantID uint
		wantOK bool
	}{
		{name: "nil", sub: nil},
		{name: "no metadata", sub: &Subscription{}},
		{name: "valid", sub: &Subscription{Metadata: map[string]string{"explorer_id": "42"}}, wantID: 42, wantOK: true},
		{name: "zero", sub: &Subscription{Metadata: map[string]string{"explorer_id": "0"}}},
		{name: "garbage", sub: &Subscription{Metadata: map[string]string{"explorer_id": "abc"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.sub.ExplorerID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSubscriptionIsTrialing(t *testing.T) {
	assert.True(t, (&Subscription{Status: "trialing"}).IsTrialing())
	assert.False(t, (&Subscription{Status: "active"}).IsTrialing())
	assert.False(t, (*Subscription)(nil).IsTrialing())
}
