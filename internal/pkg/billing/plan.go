package billing

import (
	"strconv"
	"strings"
)

// IsEntitlingStatus reports whether a subscription status grants access.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}

// IsTrialing reports whether the subscription is in its trial period.
func (s *Subscription) IsTrialing() bool {
	return s != nil && strings.EqualFold(strings.TrimSpace(s.Status), "trialing")
}

// ExplorerID returns the explorer id stored in the subscription metadata.
func (s *Subscription) ExplorerID() (uint, bool) {
	if s == nil || s.Metadata == nil {
		return 0, false
	}
	raw := strings.TrimSpace(s.Metadata[MetadataExplorerID])
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
