package model

import "time"

// Webhook event types this subsystem acts on. Everything else is accepted
// and ignored so the provider's retry policy is not triggered.
const (
	EventSubscriptionPaymentSuccess = "subscription.payment_success"
	EventChargeSuccess              = "charge.success"
)

// WebhookEvent is the provider-neutral view of an inbound webhook after the
// raw payload has been authenticated and parsed.
type WebhookEvent struct {
	Type       string
	Key        string    // idempotency key: provider event/transaction id, or raw-body digest
	OccurredAt time.Time // provider source timestamp (paid_at/created_at), else receipt time

	UserID           string // internal user id from the metadata chain; empty if not carried through
	CustomerEmail    string
	CustomerCode     string
	SubscriptionCode string
	PlanCode         string
	PlanInterval     string // raw provider value, validated downstream
	Amount           int64
}

// Handled reports whether the event type participates in entitlement updates.
func (e *WebhookEvent) Handled() bool {
	return e.Type == EventSubscriptionPaymentSuccess || e.Type == EventChargeSuccess
}
