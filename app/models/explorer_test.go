package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestExplorerCapabilities(t *testing.T) {
	var nilExplorer *Explorer
	assert.Equal(t, PlanCapabilities{}, nilExplorer.Capabilities())

	e := &Explorer{}
	assert.False(t, e.HasSubscription())
	assert.Equal(t, PlanCapabilities{}, e.Capabilities())

	e.Subscription = &ExplorerSubscription{}
	assert.Equal(t, PlanCapabilities{}, e.Capabilities(), "missing plan yields zero capabilities")

	e.Subscription.StripePlan = &StripePlan{
		Capabilities: datatypes.NewJSONType(PlanCapabilities{Branding: true, TxLimit: 100}),
	}
	caps := e.Capabilities()
	assert.True(t, caps.Branding)
	assert.Equal(t, int64(100), caps.TxLimit)
}

func TestExplorerRPCReachable(t *testing.T) {
	e := &Explorer{}
	assert.True(t, e.RPCReachable())

	e.Workspace = &Workspace{RPCHealthCheck: &RPCHealthCheck{IsReachable: false}}
	assert.False(t, e.RPCReachable())
}

func TestRPCHealthCheckRecordProbe(t *testing.T) {
	h := &RPCHealthCheck{IsReachable: true}
	now := time.Now()

	for i := 0; i < RPCHealthMaxFailedAttempts-1; i++ {
		h.RecordProbe(false, now)
	}
	assert.False(t, h.IsReachable)
	assert.False(t, h.ExceededFailedAttempts())

	h.RecordProbe(false, now)
	assert.True(t, h.ExceededFailedAttempts())

	h.RecordProbe(true, now)
	assert.True(t, h.IsReachable)
	assert.Equal(t, 0, h.FailedAttempts)
	require.NotNil(t, h.CheckedAt)
}

func TestStripePlanCapabilitiesJSON(t *testing.T) {
	var plan StripePlan
	require.NoError(t, json.Unmarshal([]byte(`{"slug":"team","capabilities":{"nativeToken":true,"customDomain":true,"txLimit":5000}}`), &plan))

	caps := plan.Caps()
	assert.True(t, caps.NativeToken)
	assert.True(t, caps.CustomDomain)
	assert.False(t, caps.Branding)
	assert.Equal(t, int64(5000), caps.TxLimit)
}

func TestExplorerSubscriptionStripeID(t *testing.T) {
	sub := &ExplorerSubscription{}
	assert.False(t, sub.HasStripeSubscription())
	assert.Equal(t, "", sub.StripeSubscriptionID())

	empty := ""
	sub.StripeID = &empty
	assert.False(t, sub.HasStripeSubscription())

	id := "sub_123"
	sub.StripeID = &id
	assert.True(t, sub.HasStripeSubscription())
	assert.Equal(t, "sub_123", sub.StripeSubscriptionID())
}
