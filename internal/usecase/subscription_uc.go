package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

// SubscriptionUseCase serves reads of the entitlement state and the
// user-initiated lifecycle operations (cancel, expiry sweep).
type SubscriptionUseCase struct {
	subs     repository.SubscriptionRepository
	provider adapter.PaymentProvider
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, provider adapter.PaymentProvider, logger *zerolog.Logger) *SubscriptionUseCase {
	l := logger.With().Str("component", "SubscriptionUseCase").Logger()
	return &SubscriptionUseCase{subs: subs, provider: provider, log: &l}
}

// Get returns the user's subscription record. A user with no record yet gets
// a zero-valued record with status none.
func (uc *SubscriptionUseCase) Get(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	rec, err := uc.subs.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.SubscriptionRecord{UserID: userID, Status: model.SubscriptionStatusNone}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// HasAccess is the lazy read-time check: active status and an unexpired
// expiry timestamp.
func (uc *SubscriptionUseCase) HasAccess(ctx context.Context, userID string) (bool, error) {
	rec, err := uc.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec.HasAccess(time.Now()), nil
}

// Cancel disables the provider-side mandate and downgrades the record. The
// record itself is never deleted.
func (uc *SubscriptionUseCase) Cancel(ctx context.Context, userID string) error {
	rec, err := uc.subs.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if rec.Status != model.SubscriptionStatusActive {
		return domain.ErrInvalidArgument
	}
	if rec.SubscriptionCode != "" && rec.SubscriptionToken != "" {
		if err := uc.provider.DisableSubscription(ctx, rec.SubscriptionCode, rec.SubscriptionToken); err != nil {
			return err
		}
	}
	now := time.Now()
	rec.Status = model.SubscriptionStatusCancelled
	rec.LastEventAt = &now
	rec.UpdatedAt = now
	if err := uc.subs.Save(ctx, rec); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", userID).Msg("subscription cancelled")
	return nil
}

// FinishExpired downgrades active records whose expiry has passed. Access is
// also checked lazily at read time; the sweep keeps the stored status from
// drifting indefinitely.
func (uc *SubscriptionUseCase) FinishExpired(ctx context.Context) (int, error) {
	return uc.subs.ExpireDue(ctx, time.Now())
}
