package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
)

// eventMetadata tolerates the shapes Paystack delivers metadata in: an
// object, a JSON-encoded string, an empty string, or null.
type eventMetadata struct {
	UserID         string `json:"userId"`
	AppwriteUserID string `json:"appwrite_user_id"`
}

func (m *eventMetadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	type plain eventMetadata
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		// metadata is free-form; a shape we don't understand is not an error
		return nil
	}
	*m = eventMetadata(p)
	return nil
}

type eventEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		ID               json.Number   `json:"id"`
		Reference        string        `json:"reference"`
		Status           string        `json:"status"`
		Amount           int64         `json:"amount"`
		PaidAt           string        `json:"paid_at"`
		CreatedAt        string        `json:"created_at"`
		SubscriptionCode string        `json:"subscription_code"`
		Metadata         eventMetadata `json:"metadata"`
		Customer         struct {
			Email        string        `json:"email"`
			CustomerCode string        `json:"customer_code"`
			Metadata     eventMetadata `json:"metadata"`
		} `json:"customer"`
		Plan       jsonPlan `json:"plan"`
		PlanObject jsonPlan `json:"plan_object"`
		Subscription struct {
			SubscriptionCode string `json:"subscription_code"`
		} `json:"subscription"`
	} `json:"data"`
}

// ParseWebhookEvent maps a verified raw payload onto the provider-neutral
// event. It must only be called after the signature check has passed.
func ParseWebhookEvent(raw []byte, receivedAt time.Time) (*model.WebhookEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("parse webhook payload: missing event type")
	}

	ev := &model.WebhookEvent{
		Type:          env.Event,
		Amount:        env.Data.Amount,
		CustomerEmail: env.Data.Customer.Email,
		CustomerCode:  env.Data.Customer.CustomerCode,
	}

	// idempotency key: provider transaction id when present, body digest otherwise
	if id := env.Data.ID.String(); id != "" {
		ev.Key = env.Event + ":" + id
	} else {
		sum := sha256.Sum256(raw)
		ev.Key = env.Event + ":" + hex.EncodeToString(sum[:])
	}

	ev.OccurredAt = parseProviderTime(env.Data.PaidAt)
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = parseProviderTime(env.Data.CreatedAt)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = receivedAt
	}

	// identity, in priority order
	switch {
	case env.Data.Metadata.UserID != "":
		ev.UserID = env.Data.Metadata.UserID
	case env.Data.Customer.Metadata.UserID != "":
		ev.UserID = env.Data.Customer.Metadata.UserID
	case env.Data.Customer.Metadata.AppwriteUserID != "":
		ev.UserID = env.Data.Customer.Metadata.AppwriteUserID
	}

	ev.SubscriptionCode = env.Data.SubscriptionCode
	if ev.SubscriptionCode == "" {
		ev.SubscriptionCode = env.Data.Subscription.SubscriptionCode
	}

	ev.PlanCode = env.Data.Plan.PlanCode
	ev.PlanInterval = env.Data.Plan.Interval
	if ev.PlanCode == "" {
		ev.PlanCode = env.Data.PlanObject.PlanCode
	}
	if ev.PlanInterval == "" {
		ev.PlanInterval = env.Data.PlanObject.Interval
	}

	return ev, nil
}
