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

// Outcome classifies how a webhook event was handled. Everything except
// OutcomeError maps to a 200 response so the provider does not retry.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeIgnored
	OutcomeDuplicate
	OutcomeStale
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeStale:
		return "stale"
	}
	return "error"
}

const applyLockTTL = 10 * time.Second

// WebhookUseCase is the authoritative asynchronous write path. It assumes
// the payload has already been authenticated; it classifies the event,
// resolves identity and interval with fallbacks, and applies the renewal
// idempotently.
type WebhookUseCase struct {
	provider adapter.PaymentProvider
	subs     repository.SubscriptionRepository
	dedup    repository.EventDeduper
	locker   repository.Locker
	dedupTTL time.Duration
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	provider adapter.PaymentProvider,
	subs repository.SubscriptionRepository,
	dedup repository.EventDeduper,
	locker repository.Locker,
	dedupTTL time.Duration,
	logger *zerolog.Logger,
) *WebhookUseCase {
	l := logger.With().Str("component", "WebhookUseCase").Logger()
	return &WebhookUseCase{
		provider: provider,
		subs:     subs,
		dedup:    dedup,
		locker:   locker,
		dedupTTL: dedupTTL,
		log:      &l,
	}
}

// Process runs the event through the state machine:
// Classified -> IdentityResolved -> IntervalResolved -> Applied.
func (uc *WebhookUseCase) Process(ctx context.Context, ev *model.WebhookEvent) (Outcome, error) {
	if ev == nil {
		return OutcomeError, domain.ErrInvalidArgument
	}

	if !ev.Handled() {
		metrics.IncWebhookEvent(ev.Type, "ignored")
		uc.log.Debug().Str("event", ev.Type).Msg("event type not handled, acknowledged")
		return OutcomeIgnored, nil
	}

	dedupKey := "webhook:" + ev.Key
	marked := false
	first, err := uc.dedup.MarkProcessed(ctx, dedupKey, uc.dedupTTL)
	if err != nil {
		// dedup is advisory; the last_event_at guard still protects the store
		uc.log.Warn().Err(err).Str("key", ev.Key).Msg("idempotency cache unavailable")
	} else if !first {
		metrics.IncWebhookEvent(ev.Type, "duplicate")
		uc.log.Info().Str("key", ev.Key).Msg("duplicate delivery short-circuited")
		return OutcomeDuplicate, nil
	} else {
		marked = true
	}

	outcome, err := uc.handle(ctx, ev)
	if outcome == OutcomeError && marked {
		// release the key so the provider's redelivery is not suppressed
		if ferr := uc.dedup.Forget(ctx, dedupKey); ferr != nil {
			uc.log.Warn().Err(ferr).Str("key", ev.Key).Msg("could not release idempotency key")
		}
	}
	return outcome, err
}

func (uc *WebhookUseCase) handle(ctx context.Context, ev *model.WebhookEvent) (Outcome, error) {
	userID, err := uc.resolveUser(ctx, ev)
	if err != nil {
		metrics.IncWebhookEvent(ev.Type, "rejected")
		return OutcomeError, err
	}

	interval, err := uc.resolveInterval(ctx, ev)
	if err != nil {
		metrics.IncWebhookEvent(ev.Type, "rejected")
		return OutcomeError, err
	}

	token, err := uc.locker.TryLock(ctx, "subscription:apply:"+userID, applyLockTTL)
	if err != nil {
		metrics.IncWebhookEvent(ev.Type, "error")
		return OutcomeError, fmt.Errorf("%w: apply lock: %v", domain.ErrOperationFailed, err)
	}
	defer func() { _ = uc.locker.Unlock(ctx, "subscription:apply:"+userID, token) }()

	outcome, err := uc.apply(ctx, ev, userID, interval)
	metrics.IncWebhookEvent(ev.Type, outcome.String())
	return outcome, err
}

// resolveUser takes the internal user id carried in the event metadata, and
// falls back to a store lookup by provider customer code. A renewal whose
// metadata was dropped by the provider and whose customer was never recorded
// cannot self-heal; it is rejected for manual reconciliation.
func (uc *WebhookUseCase) resolveUser(ctx context.Context, ev *model.WebhookEvent) (string, error) {
	if ev.UserID != "" {
		return ev.UserID, nil
	}
	if ev.CustomerCode != "" {
		rec, err := uc.subs.FindByCustomerCode(ctx, ev.CustomerCode)
		if err == nil && rec.UserID != "" {
			return rec.UserID, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	uc.log.Warn().Str("event", ev.Type).Str("customer_code", ev.CustomerCode).Msg("no resolvable user on event")
	return "", domain.ErrUnresolvedUser
}

// resolveInterval uses the interval carried on the event, else scans the
// plan catalog for the event's plan code.
func (uc *WebhookUseCase) resolveInterval(ctx context.Context, ev *model.WebhookEvent) (model.Interval, error) {
	if interval, ok := model.ParseInterval(ev.PlanInterval); ok {
		return interval, nil
	}
	if ev.PlanCode != "" {
		plans, err := uc.provider.ListPlans(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range plans {
			if p.Code == ev.PlanCode && p.Interval != "" {
				return p.Interval, nil
			}
		}
	}
	uc.log.Warn().Str("event", ev.Type).Str("plan_code", ev.PlanCode).Msg("no resolvable interval on event")
	return "", domain.ErrUnresolvedInterval
}

func (uc *WebhookUseCase) apply(ctx context.Context, ev *model.WebhookEvent, userID string, interval model.Interval) (Outcome, error) {
	now := time.Now()

	existing, err := uc.subs.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return OutcomeError, err
	}

	// Renewals extend from the previous expiry when it is still in the
	// future, so a delayed or redelivered event cannot re-extend from its
	// delivery time.
	anchor := now
	if existing != nil && existing.Expiry != nil && existing.Expiry.After(anchor) {
		anchor = *existing.Expiry
	}

	// promotional eligibility is never re-applied on renewal
	expiry, cerr := model.ComputeExpiry(anchor, interval, false)
	if cerr != nil {
		uc.log.Warn().Err(cerr).Str("interval", string(interval)).Msg("expiry computed with fallback interval")
	}

	eventAt := ev.OccurredAt
	if eventAt.IsZero() {
		eventAt = now
	}
	rec := &model.SubscriptionRecord{
		UserID:      userID,
		Status:      model.SubscriptionStatusActive,
		PlanCode:    ev.PlanCode,
		Expiry:      &expiry,
		LastEventAt: &eventAt,
		UpdatedAt:   now,
	}
	if existing != nil {
		if rec.PlanCode == "" {
			rec.PlanCode = existing.PlanCode
		}
		rec.CustomerCode = existing.CustomerCode
		rec.SubscriptionToken = existing.SubscriptionToken
		rec.SubscriptionCode = existing.SubscriptionCode
	}
	if ev.CustomerCode != "" {
		rec.CustomerCode = ev.CustomerCode
	}
	if ev.SubscriptionCode != "" {
		rec.SubscriptionCode = ev.SubscriptionCode
	}

	if err := uc.subs.Save(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrStaleEvent) {
			uc.log.Info().Str("key", ev.Key).Time("event_at", eventAt).Msg("event older than applied state, skipped")
			return OutcomeStale, nil
		}
		return OutcomeError, err
	}

	metrics.IncSubscriptionActivated("webhook")
	uc.log.Info().
		Str("user_id", userID).
		Str("event", ev.Type).
		Str("plan_code", rec.PlanCode).
		Time("expiry", expiry).
		Msg("subscription renewed via webhook")
	return OutcomeApplied, nil
}
