package models

import "time"

// RPCHealthMaxFailedAttempts is the number of consecutive failed probes after
// which syncing is switched off for the workspace's explorer.
const RPCHealthMaxFailedAttempts = 3

// RPCHealthCheck caches the outcome of the last reachability probe of a
// workspace RPC endpoint.
type RPCHealthCheck struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	WorkspaceID    uint       `gorm:"not null;uniqueIndex" json:"workspace_id"`
	IsReachable    bool       `gorm:"default:true" json:"is_reachable"`
	FailedAttempts int        `gorm:"default:0" json:"failed_attempts"`
	CheckedAt      *time.Time `gorm:"type:timestamp;default:null" json:"checked_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordProbe applies a probe outcome to the check.
func (h *RPCHealthCheck) RecordProbe(reachable bool, at time.Time) {
	h.IsReachable = reachable
	h.CheckedAt = &at
	if reachable {
		h.FailedAttempts = 0
		return
	}
	h.FailedAttempts++
}

// ExceededFailedAttempts reports whether the endpoint failed often enough in a
// row to stop syncing.
func (h *RPCHealthCheck) ExceededFailedAttempts() bool {
	return h != nil && h.FailedAttempts >= RPCHealthMaxFailedAttempts
}
