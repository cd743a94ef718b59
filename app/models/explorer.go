package models

import (
	"time"

	"gorm.io/datatypes"
)

const DefaultNativeToken = "ether"

// ExplorerLink is an external link rendered in the explorer header.
type ExplorerLink struct {
	Name string `json:"name" validate:"required,max=50"`
	URL  string `json:"url" validate:"required,url"`
}

// ExplorerBranding holds the visual customisation of an explorer.
type ExplorerBranding struct {
	Light   map[string]string `json:"light,omitempty"`
	Dark    map[string]string `json:"dark,omitempty"`
	Logo    string            `json:"logo,omitempty"`
	Favicon string            `json:"favicon,omitempty"`
	Banner  string            `json:"banner,omitempty"`
	Font    string            `json:"font,omitempty"`
	Links   []ExplorerLink    `json:"links,omitempty"`
}

type Explorer struct {
	ID                  uint                                 `gorm:"primaryKey" json:"id"`
	UserID              uint                                 `gorm:"not null;index" json:"user_id"`
	WorkspaceID         uint                                 `gorm:"not null;uniqueIndex" json:"workspace_id"`
	Workspace           *Workspace                           `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Name                string                               `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	Slug                string                               `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`
	ChainID             int64                                `gorm:"default:0" json:"chain_id"`
	Token               string                               `gorm:"type:varchar(20);default:'ether'" json:"token"`
	TotalSupply         string                               `gorm:"type:varchar(100);default:''" json:"total_supply,omitempty"`
	L1Explorer          string                               `gorm:"type:varchar(255);default:''" json:"l1_explorer,omitempty"`
	GasAnalyticsEnabled bool                                 `gorm:"default:false" json:"gas_analytics_enabled"`
	ShouldSync          bool                                 `gorm:"default:false;index" json:"should_sync"`
	Branding            datatypes.JSONType[ExplorerBranding] `gorm:"type:json" json:"branding"`
	Domains             []ExplorerDomain                     `gorm:"foreignKey:ExplorerID" json:"domains"`
	Subscription        *ExplorerSubscription                `gorm:"foreignKey:ExplorerID" json:"subscription,omitempty"`
	CreatedAt           time.Time                            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                            `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasSubscription reports whether the explorer currently has a live subscription.
func (e *Explorer) HasSubscription() bool {
	return e != nil && e.Subscription != nil
}

// Capabilities returns the capability set of the explorer's current plan, or the
// zero set when there is none.
func (e *Explorer) Capabilities() PlanCapabilities {
	if !e.HasSubscription() {
		return PlanCapabilities{}
	}
	return e.Subscription.StripePlan.Caps()
}

// RPCReachable reports the cached reachability of the workspace RPC. A
// workspace that was never probed counts as reachable.
func (e *Explorer) RPCReachable() bool {
	if e == nil || e.Workspace == nil || e.Workspace.RPCHealthCheck == nil {
		return true
	}
	return e.Workspace.RPCHealthCheck.IsReachable
}
