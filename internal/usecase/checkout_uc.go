package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/metrics"
)

// CheckoutUseCase initiates provider checkout sessions. It never writes the
// subscription record: checkout alone grants nothing.
type CheckoutUseCase struct {
	provider    adapter.PaymentProvider
	subs        repository.SubscriptionRepository
	callbackURL string
	log         *zerolog.Logger
	entropy     *ulid.MonotonicEntropy
}

func NewCheckoutUseCase(provider adapter.PaymentProvider, subs repository.SubscriptionRepository, callbackURL string, logger *zerolog.Logger) *CheckoutUseCase {
	l := logger.With().Str("component", "CheckoutUseCase").Logger()
	return &CheckoutUseCase{
		provider:    provider,
		subs:        subs,
		callbackURL: callbackURL,
		log:         &l,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Initiate creates a provider checkout session for the user and plan and
// returns the redirect URL.
func (uc *CheckoutUseCase) Initiate(ctx context.Context, user *model.User, planCode string) (string, error) {
	if user == nil {
		return "", domain.ErrUnauthenticated
	}
	if planCode == "" {
		return "", domain.ErrInvalidArgument
	}

	plan, err := uc.provider.GetPlan(ctx, planCode)
	if err != nil {
		return "", err
	}

	promo := uc.promoEligible(ctx, user.ID)
	ref := ulid.MustNew(ulid.Timestamp(time.Now()), uc.entropy).String()

	session := &model.CheckoutSession{
		Reference:   ref,
		Email:       user.Email,
		Amount:      plan.Amount,
		Currency:    plan.Currency,
		PlanCode:    plan.Code,
		CallbackURL: uc.callbackURL,
		Metadata: model.CheckoutMetadata{
			UserID:        user.ID,
			PlanID:        plan.Code,
			PlanCode:      plan.Code,
			Interval:      plan.Interval,
			PromoEligible: promo,
			CustomFields: []model.CustomField{
				{DisplayName: "Plan", VariableName: "plan_name", Value: plan.Name},
			},
		},
	}

	redirectURL, err := uc.provider.InitializeTransaction(ctx, session)
	if err != nil {
		metrics.IncCheckout("failed")
		uc.log.Warn().Err(err).Str("plan_code", planCode).Msg("checkout initialization failed")
		if errors.Is(err, domain.ErrCheckoutInitFailed) || errors.Is(err, domain.ErrProviderUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutInitFailed, err)
	}

	metrics.IncCheckout("initiated")
	uc.log.Info().Str("reference", ref).Str("plan_code", plan.Code).Bool("promo", promo).Msg("checkout initiated")
	return redirectURL, nil
}

// promoEligible applies the business rule: the promotional grant goes to
// users who have never held a subscription.
func (uc *CheckoutUseCase) promoEligible(ctx context.Context, userID string) bool {
	rec, err := uc.subs.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return true
	}
	if err != nil {
		// fail closed on the grant, not on the checkout
		uc.log.Warn().Err(err).Msg("promo eligibility lookup failed")
		return false
	}
	return rec.Status == model.SubscriptionStatusNone && rec.SubscriptionCode == ""
}
