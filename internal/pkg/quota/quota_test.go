package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/BlockFox/app/models"
)

func explorerWith(limit, used int64) *models.Explorer {
	return &models.Explorer{
		Subscription: &models.ExplorerSubscription{
			TransactionQuota: used,
			StripePlan: &models.StripePlan{
				Capabilities: datatypes.NewJSONType(models.PlanCapabilities{TxLimit: limit}),
			},
		},
	}
}

func TestReached(t *testing.T) {
	tests := []struct {
		name     string
		explorer *models.Explorer
		want     bool
	}{
		{name: "no subscription", explorer: &models.Explorer{}, want: false},
		{name: "unlimited plan", explorer: explorerWith(0, 1_000_000), want: false},
		{name: "below limit", explorer: explorerWith(100, 99), want: false},
		{name: "at limit", explorer: explorerWith(100, 100), want: true},
		{name: "above limit", explorer: explorerWith(100, 150), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reached(tt.explorer))
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, int64(-1), Remaining(explorerWith(0, 10)))
	assert.Equal(t, int64(90), Remaining(explorerWith(100, 10)))
	assert.Equal(t, int64(0), Remaining(explorerWith(100, 120)))
	assert.Equal(t, int64(-1), Remaining(&models.Explorer{}))
}
