package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/metrics"
)

// promoStartShiftMonths shifts the provider-side subscription start date for
// promo checkouts so billing begins after the promotional grant.
const promoStartShiftMonths = 2

// VerifyUseCase is the synchronous write path: it runs when the browser
// returns from checkout, verifies the transaction with the provider, creates
// the provider-side mandate and activates the subscription record.
type VerifyUseCase struct {
	provider adapter.PaymentProvider
	subs     repository.SubscriptionRepository
	log      *zerolog.Logger
}

func NewVerifyUseCase(provider adapter.PaymentProvider, subs repository.SubscriptionRepository, logger *zerolog.Logger) *VerifyUseCase {
	l := logger.With().Str("component", "VerifyUseCase").Logger()
	return &VerifyUseCase{provider: provider, subs: subs, log: &l}
}

// Confirm verifies the referenced transaction and activates the caller's
// subscription. Each step is a hard precondition; no failure may grant
// active status.
func (uc *VerifyUseCase) Confirm(ctx context.Context, user *model.User, reference string) (*model.SubscriptionRecord, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if reference == "" {
		return nil, domain.ErrMissingData
	}

	txn, err := uc.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		metrics.IncVerification("provider_error")
		return nil, err
	}
	if txn.Status != "success" {
		metrics.IncVerification("not_successful")
		return nil, fmt.Errorf("%w: provider status %q", domain.ErrVerificationFailed, txn.Status)
	}

	if txn.CustomerEmail == "" || txn.PlanCode == "" || txn.AuthorizationCode == "" || txn.Metadata.UserID == "" {
		metrics.IncVerification("missing_data")
		return nil, domain.ErrMissingData
	}
	interval, ok := model.ParseInterval(string(txn.Metadata.Interval))
	if !ok {
		metrics.IncVerification("invalid_interval")
		return nil, domain.ErrInvalidInterval
	}
	promo := txn.Metadata.PromoEligible

	// The provider-side subscription starts at the paid-at timestamp, shifted
	// past the promotional grant when one applies. This is distinct from the
	// locally computed expiry below.
	start := txn.PaidAt
	if start.IsZero() {
		start = time.Now()
	}
	if promo {
		start = start.AddDate(0, promoStartShiftMonths, 0)
	}

	sub, err := uc.provider.CreateSubscription(ctx, txn.CustomerEmail, txn.PlanCode, txn.AuthorizationCode, start)
	if errors.Is(err, domain.ErrDuplicateSubscription) {
		// The mandate already exists; look it up and reuse it instead of
		// failing the whole checkout.
		sub, err = uc.reuseExisting(ctx, txn.CustomerCode, txn.PlanCode)
	}
	if err != nil {
		metrics.IncVerification("subscription_create_failed")
		if errors.Is(err, domain.ErrSubscriptionCreateFailed) || errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSubscriptionCreateFailed, err)
	}

	now := time.Now()
	expiry, cerr := model.ComputeExpiry(now, interval, promo)
	if cerr != nil {
		uc.log.Warn().Err(cerr).Str("interval", string(interval)).Msg("expiry computed with fallback interval")
	}

	eventAt := txn.PaidAt
	if eventAt.IsZero() {
		eventAt = now
	}
	rec := &model.SubscriptionRecord{
		UserID:            txn.Metadata.UserID,
		Status:            model.SubscriptionStatusActive,
		PlanCode:          txn.PlanCode,
		Expiry:            &expiry,
		CustomerCode:      txn.CustomerCode,
		SubscriptionToken: sub.EmailToken,
		SubscriptionCode:  sub.SubscriptionCode,
		LastEventAt:       &eventAt,
		UpdatedAt:         now,
	}
	if err := uc.subs.Save(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrStaleEvent) {
			// the webhook already applied a newer state; this path has nothing left to do
			uc.log.Info().Str("reference", reference).Msg("redirect write superseded by newer event")
			metrics.IncVerification("superseded")
			return rec, nil
		}
		metrics.IncVerification("store_error")
		return nil, err
	}

	metrics.IncVerification("activated")
	metrics.IncSubscriptionActivated("redirect")
	uc.log.Info().
		Str("user_id", rec.UserID).
		Str("plan_code", rec.PlanCode).
		Time("expiry", expiry).
		Bool("promo", promo).
		Msg("subscription activated via redirect")
	return rec, nil
}

func (uc *VerifyUseCase) reuseExisting(ctx context.Context, customerCode, planCode string) (*adapter.ProviderSubscription, error) {
	if customerCode == "" {
		// an unfiltered listing could hand back another customer's mandate
		return nil, domain.ErrSubscriptionCreateFailed
	}
	subs, err := uc.provider.ListSubscriptions(ctx, customerCode, planCode)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if s.PlanCode == "" || s.PlanCode == planCode {
			return s, nil
		}
	}
	return nil, domain.ErrSubscriptionCreateFailed
}
