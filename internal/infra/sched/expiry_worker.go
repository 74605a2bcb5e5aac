package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/metrics"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/usecase"
)

// ExpiryWorker periodically downgrades subscription records whose expiry has
// passed. Reads also check expiry lazily; the sweep keeps stored status from
// drifting.
type ExpiryWorker struct {
	interval time.Duration
	subUC    *usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC *usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		log:      &l,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.FinishExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				metrics.IncSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions downgraded")
			}
		}
	}
}
