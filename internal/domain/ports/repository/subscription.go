package repository

import (
	"context"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
)

// SubscriptionRepository is the single source of truth for entitlement state.
type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.SubscriptionRecord, error)
	// FindByCustomerCode resolves a record by the provider customer id; used
	// as the identity fallback for renewal webhooks whose metadata was not
	// carried through by the provider.
	FindByCustomerCode(ctx context.Context, customerCode string) (*model.SubscriptionRecord, error)
	// Save upserts the record keyed by user id. A write whose LastEventAt is
	// older than the stored one is rejected with domain.ErrStaleEvent so the
	// two uncoordinated writers cannot clobber a newer state with an older one.
	Save(ctx context.Context, rec *model.SubscriptionRecord) error
	// ExpireDue downgrades active records whose expiry has passed and returns
	// the number of records downgraded.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
