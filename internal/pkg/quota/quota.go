// Package quota evaluates the transaction quota of an explorer's plan.
package quota

import "github.com/ManuelReschke/BlockFox/app/models"

// Reached reports whether the explorer ingested at least as many transactions
// this cycle as its plan allows. A limit of zero means unlimited.
func Reached(e *models.Explorer) bool {
	if !e.HasSubscription() {
		return false
	}
	return Exceeds(e.Subscription.TransactionQuota, e.Capabilities().TxLimit)
}

// Exceeds is the raw comparison used by Reached.
func Exceeds(used, limit int64) bool {
	return limit > 0 && used >= limit
}

// Remaining returns how many transactions are left, -1 when unlimited.
func Remaining(e *models.Explorer) int64 {
	limit := e.Capabilities().TxLimit
	if limit <= 0 {
		return -1
	}
	var used int64
	if e.HasSubscription() {
		used = e.Subscription.TransactionQuota
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
