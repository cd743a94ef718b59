package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlanCapabilities is the feature set a plan unlocks for an explorer.
type PlanCapabilities struct {
	NativeToken   bool  `json:"nativeToken"`
	TotalSupply   bool  `json:"totalSupply"`
	Branding      bool  `json:"branding"`
	CustomDomain  bool  `json:"customDomain"`
	TxLimit       int64 `json:"txLimit"`
	DataRetention int   `json:"dataRetention"`
}

// StripePlan is a billing plan backed by a Stripe price. Plans are managed
// outside of this service and only read here.
type StripePlan struct {
	ID            uint                                 `gorm:"primaryKey" json:"id"`
	Slug          string                               `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Name          string                               `gorm:"type:varchar(150);not null" json:"name"`
	StripePriceID string                               `gorm:"type:varchar(191);not null;default:'';index" json:"stripe_price_id"`
	Price         int64                                `gorm:"default:0" json:"price"`
	Public        bool                                 `gorm:"default:false;index" json:"public"`
	Capabilities  datatypes.JSONType[PlanCapabilities] `gorm:"type:json" json:"capabilities"`
	CreatedAt     time.Time                            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                            `gorm:"autoUpdateTime" json:"updated_at"`
}

// Caps returns the decoded capability set.
func (p *StripePlan) Caps() PlanCapabilities {
	if p == nil {
		return PlanCapabilities{}
	}
	return p.Capabilities.Data()
}
