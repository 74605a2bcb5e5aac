package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/logging"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/metrics"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/infra/payment"
)

const maxWebhookBody = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// handleWebhook is the authoritative asynchronous path. The signature over
// the raw body is checked before any JSON parsing; a 200 acknowledges every
// event we intentionally ignore so the provider does not retry it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "unreadable body"})
		return
	}

	sig := r.Header.Get(payment.SignatureHeader)
	if !payment.VerifySignature(s.webhookSecret, body, sig) {
		metrics.IncWebhookEvent("unknown", "bad_signature")
		log.Warn().Msg("webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"received": false, "error": "invalid signature"})
		return
	}

	ev, err := payment.ParseWebhookEvent(body, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("malformed webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "malformed payload"})
		return
	}

	outcome, err := s.webhookUC.Process(r.Context(), ev)
	if err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Str("outcome", outcome.String()).Msg("webhook rejected")
		switch {
		case errors.Is(err, domain.ErrUnresolvedUser), errors.Is(err, domain.ErrUnresolvedInterval), errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"received": false, "error": "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

// handleVerify runs when the browser returns from checkout. Every failure
// becomes a redirect with an error code; nothing raw reaches the browser.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r)
	if err != nil {
		s.redirectStatus(w, r, "error", "unauthenticated")
		return
	}

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		// Paystack appends trxref as well; accept either
		reference = r.URL.Query().Get("trxref")
	}

	if _, err := s.verifyUC.Confirm(r.Context(), user, reference); err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Str("reference", reference).Msg("redirect verification failed")
		s.redirectStatus(w, r, "error", verifyErrorCode(err))
		return
	}
	s.redirectStatus(w, r, "success", "1")
}

func verifyErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, domain.ErrMissingData):
		return "missing_data"
	case errors.Is(err, domain.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, domain.ErrDuplicateSubscription), errors.Is(err, domain.ErrSubscriptionCreateFailed):
		return "subscription_create_failed"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "transaction_not_found"
	}
	return "internal"
}

func (s *Server) redirectStatus(w http.ResponseWriter, r *http.Request, key, value string) {
	u, err := url.Parse(s.statusURL)
	if err != nil {
		http.Error(w, "bad status page configuration", http.StatusInternalServerError)
		return
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

type checkoutRequest struct {
	PlanCode string `json:"plan_code"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan_code is required"})
		return
	}

	redirectURL, err := s.checkoutUC.Initiate(r.Context(), user, req.PlanCode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "plan not found"})
		case errors.Is(err, domain.ErrProviderUnavailable):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment provider unavailable"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "checkout initialization failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": redirectURL})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment provider unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": plans})
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	rec, err := s.subUC.Get(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load subscription"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     rec.Status,
		"plan_code":  rec.PlanCode,
		"expiry":     rec.Expiry,
		"has_access": rec.HasAccess(time.Now()),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return
	}
	if err := s.subUC.Cancel(r.Context(), user.ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no active subscription"})
		case errors.Is(err, domain.ErrProviderUnavailable):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment provider unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cancel failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
