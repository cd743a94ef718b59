package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExplorerSubscription links an explorer to a plan. StripeID is empty for
// subscriptions granted locally (default plan, billing disabled).
type ExplorerSubscription struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ExplorerID           uint           `gorm:"not null;index" json:"explorer_id"`
	StripePlanID         uint           `gorm:"not null;index" json:"stripe_plan_id"`
	StripePlan           *StripePlan    `gorm:"foreignKey:StripePlanID" json:"stripe_plan,omitempty"`
	StripeID             *string        `gorm:"type:varchar(191);uniqueIndex" json:"stripe_id,omitempty"`
	IsPendingCancelation bool           `gorm:"default:false" json:"is_pending_cancelation"`
	IsTrialing           bool           `gorm:"default:false" json:"is_trialing"`
	TransactionQuota     int64          `gorm:"default:0" json:"transaction_quota"`
	CycleEndsAt          *time.Time     `gorm:"type:timestamp;default:null" json:"cycle_ends_at,omitempty"`
	StripeObject         datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasStripeSubscription reports whether the record mirrors a Stripe subscription.
func (s *ExplorerSubscription) HasStripeSubscription() bool {
	return s != nil && s.StripeID != nil && *s.StripeID != ""
}

// StripeSubscriptionID returns the Stripe id or an empty string.
func (s *ExplorerSubscription) StripeSubscriptionID() string {
	if !s.HasStripeSubscription() {
		return ""
	}
	return *s.StripeID
}
