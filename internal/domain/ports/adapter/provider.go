package adapter

import (
	"context"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
)

// Transaction is a verified provider transaction.
type Transaction struct {
	Reference         string
	Status            string // provider status, "success" when settled
	Amount            int64
	Currency          string
	PaidAt            time.Time
	CustomerEmail     string
	CustomerCode      string
	AuthorizationCode string
	PlanCode          string
	Metadata          model.CheckoutMetadata
}

// ProviderSubscription is the provider's recurring mandate. It is created
// once per user+plan; the provider rejects a second creation attempt with a
// duplicate error.
type ProviderSubscription struct {
	SubscriptionCode string
	EmailToken       string
	CustomerEmail    string
	CustomerCode     string
	PlanCode         string
	Status           string
}

// PaymentProvider is the hex port for the payment provider HTTP API.
// All amounts are integers in minor currency units. Calls are synchronous
// and single-attempt; transport failures surface as
// domain.ErrProviderUnavailable.
type PaymentProvider interface {
	Name() string

	// InitializeTransaction creates a checkout session on the provider and
	// returns the authorization URL the browser is redirected to.
	InitializeTransaction(ctx context.Context, session *model.CheckoutSession) (redirectURL string, err error)
	// VerifyTransaction fetches the provider's view of a transaction by
	// reference.
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)

	ListPlans(ctx context.Context) ([]*model.Plan, error)
	GetPlan(ctx context.Context, code string) (*model.Plan, error)

	// CreateSubscription creates the recurring mandate. Returns
	// domain.ErrDuplicateSubscription when the mandate already exists.
	CreateSubscription(ctx context.Context, customer, planCode, authorizationCode string, startDate time.Time) (*ProviderSubscription, error)
	// ListSubscriptions returns the customer's mandates, optionally filtered
	// by plan code.
	ListSubscriptions(ctx context.Context, customerCode, planCode string) ([]*ProviderSubscription, error)
	EnableSubscription(ctx context.Context, code, emailToken string) error
	DisableSubscription(ctx context.Context, code, emailToken string) error
}
