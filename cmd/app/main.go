package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/config"
	pg "github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/db/postgres"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/logging"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/metrics"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/payment"
	red "github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/redis"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/sched"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/web"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	deduper := red.NewDeduper(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Provider ----
	provider := payment.NewPaystackClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL)

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(provider)
	checkoutUC := usecase.NewCheckoutUseCase(provider, subRepo, cfg.Paystack.CallbackURL, logger)
	verifyUC := usecase.NewVerifyUseCase(provider, subRepo, logger)
	webhookUC := usecase.NewWebhookUseCase(provider, subRepo, deduper, locker, cfg.Redis.DedupTTL, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, provider, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.SessionSecret, cfg.Auth.CookieName, userRepo)
	srv := web.NewServer(checkoutUC, verifyUC, webhookUC, subUC, planUC, auth, cfg.Paystack.SecretKey, cfg.Server.StatusURL, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry sweep ----
	worker := sched.NewExpiryWorker(cfg.Sweep.Interval, subUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
