package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/usecase"
)

// Server wires the payment subsystem's HTTP surface: the webhook endpoint,
// the redirect verification endpoint, checkout and a few read routes.
type Server struct {
	checkoutUC *usecase.CheckoutUseCase
	verifyUC   *usecase.VerifyUseCase
	webhookUC  *usecase.WebhookUseCase
	subUC      *usecase.SubscriptionUseCase
	planUC     *usecase.PlanUseCase
	auth       *AuthManager

	webhookSecret string
	statusURL     string // page the verifier redirects the browser to
	log           *zerolog.Logger
}

func NewServer(
	checkoutUC *usecase.CheckoutUseCase,
	verifyUC *usecase.VerifyUseCase,
	webhookUC *usecase.WebhookUseCase,
	subUC *usecase.SubscriptionUseCase,
	planUC *usecase.PlanUseCase,
	auth *AuthManager,
	webhookSecret string,
	statusURL string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		checkoutUC:    checkoutUC,
		verifyUC:      verifyUC,
		webhookUC:     webhookUC,
		subUC:         subUC,
		planUC:        planUC,
		auth:          auth,
		webhookSecret: webhookSecret,
		statusURL:     statusURL,
		log:           &l,
	}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/plans", s.handleListPlans)
	r.Post("/payments/checkout", s.handleCheckout)
	r.Get("/payments/verify", s.handleVerify)
	r.Post("/webhooks/payment", s.handleWebhook)
	r.Get("/subscriptions/me", s.handleMySubscription)
	r.Post("/subscriptions/me/cancel", s.handleCancel)

	return r
}
