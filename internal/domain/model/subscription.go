package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusNone      SubscriptionStatus = "none"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// SubscriptionRecord is the authoritative entitlement state for one user.
// It is written only by the redirect verifier (first activation) and the
// webhook processor (renewals); every access-gated feature reads it.
// Records are never deleted, only downgraded to a non-active status.
type SubscriptionRecord struct {
	UserID            string
	Status            SubscriptionStatus
	PlanCode          string
	Expiry            *time.Time // present whenever Status is active
	CustomerCode      string     // provider customer id
	SubscriptionToken string     // provider email token (enable/disable calls)
	SubscriptionCode  string     // provider subscription code
	LastEventAt       *time.Time // source timestamp of the last applied event
	UpdatedAt         time.Time
}

// HasAccess reports whether the record grants access at the given instant.
// The expiry timestamp is the single authoritative boundary; no other field
// may grant access.
func (r *SubscriptionRecord) HasAccess(now time.Time) bool {
	if r == nil || r.Status != SubscriptionStatusActive {
		return false
	}
	return r.Expiry != nil && now.Before(*r.Expiry)
}
