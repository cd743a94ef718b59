package models

import "time"

// WebhookEvent is one Stripe delivery. Stripe retries deliveries, so the
// event id is unique and a redelivery never creates a second row.
type WebhookEvent struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	StripeEventID        string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_event_id"`
	Type                 string     `gorm:"type:varchar(100);not null;default:'';index" json:"type"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;default:'';index" json:"stripe_subscription_id"`
	Payload              string     `gorm:"type:longtext;not null" json:"-"`
	SignatureValid       bool       `gorm:"default:false" json:"signature_valid"`
	Attempts             int        `gorm:"default:0" json:"attempts"`
	ProcessedAt          *time.Time `gorm:"type:timestamp;default:null;index" json:"processed_at,omitempty"`
	LastError            string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Replayable reports whether the delivery was authentic but never applied.
func (e *WebhookEvent) Replayable(maxAttempts int) bool {
	return e.SignatureValid && e.ProcessedAt == nil && e.Attempts < maxAttempts
}
