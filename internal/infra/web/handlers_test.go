//go:build !integration

package web

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/usecase"
)

const (
	testWebhookSecret = "whsec_test"
	testSessionSecret = "sess_test"
	testStatusURL     = "https://app.example.com/payment/status"
)

// ----- package-local fakes -----

type stubSubRepo struct {
	mu        sync.Mutex
	store     map[string]*model.SubscriptionRecord
	saveCalls int
}

func newStubSubRepo() *stubSubRepo {
	return &stubSubRepo{store: make(map[string]*model.SubscriptionRecord)}
}

func (s *stubSubRepo) FindByUserID(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubSubRepo) FindByCustomerCode(ctx context.Context, code string) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.store {
		if rec.CustomerCode == code {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubSubRepo) Save(ctx context.Context, rec *model.SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if existing, ok := s.store[rec.UserID]; ok {
		if existing.LastEventAt != nil && rec.LastEventAt != nil && !rec.LastEventAt.After(*existing.LastEventAt) {
			return domain.ErrStaleEvent
		}
	}
	cp := *rec
	s.store[rec.UserID] = &cp
	return nil
}

func (s *stubSubRepo) ExpireDue(ctx context.Context, now time.Time) (int, error) { return 0, nil }

type stubUserRepo struct{ users map[string]*model.User }

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type stubProvider struct {
	plans     []*model.Plan
	verifyTxn *adapter.Transaction
	verifyErr error
	createSub *adapter.ProviderSubscription
	initURL   string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) InitializeTransaction(ctx context.Context, session *model.CheckoutSession) (string, error) {
	return p.initURL, nil
}

func (p *stubProvider) VerifyTransaction(ctx context.Context, reference string) (*adapter.Transaction, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.verifyTxn, nil
}

func (p *stubProvider) ListPlans(ctx context.Context) ([]*model.Plan, error) { return p.plans, nil }

func (p *stubProvider) GetPlan(ctx context.Context, code string) (*model.Plan, error) {
	for _, pl := range p.plans {
		if pl.Code == code {
			return pl, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (p *stubProvider) CreateSubscription(ctx context.Context, customer, planCode, authCode string, startDate time.Time) (*adapter.ProviderSubscription, error) {
	return p.createSub, nil
}

func (p *stubProvider) ListSubscriptions(ctx context.Context, customerCode, planCode string) ([]*adapter.ProviderSubscription, error) {
	return nil, nil
}

func (p *stubProvider) EnableSubscription(ctx context.Context, code, emailToken string) error {
	return nil
}

func (p *stubProvider) DisableSubscription(ctx context.Context, code, emailToken string) error {
	return nil
}

type stubDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *stubDeduper) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *stubDeduper) Forget(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

type stubLocker struct{}

func (stubLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "t", nil
}
func (stubLocker) Unlock(ctx context.Context, key, token string) error { return nil }

type testEnv struct {
	server *httptest.Server
	subs   *stubSubRepo
	auth   *AuthManager
}

func newTestEnv(t *testing.T, provider *stubProvider) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	subs := newStubSubRepo()
	users := &stubUserRepo{users: map[string]*model.User{
		"user-1": {ID: "user-1", Email: "a@b.co", Name: "Ada"},
	}}
	auth := NewAuthManager(testSessionSecret, "session", users)

	checkoutUC := usecase.NewCheckoutUseCase(provider, subs, "https://api.example.com/payments/verify", &log)
	verifyUC := usecase.NewVerifyUseCase(provider, subs, &log)
	webhookUC := usecase.NewWebhookUseCase(provider, subs, &stubDeduper{}, stubLocker{}, time.Hour, &log)
	subUC := usecase.NewSubscriptionUseCase(subs, provider, &log)
	planUC := usecase.NewPlanUseCase(provider)

	srv := NewServer(checkoutUC, verifyUC, webhookUC, subUC, planUC, auth, testWebhookSecret, testStatusURL, &log)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, subs: subs, auth: auth}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeSuccessBody(userID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "charge.success",
		"data": {
			"id": 12345,
			"reference": "ref-1",
			"status": "success",
			"amount": 500000,
			"paid_at": %q,
			"metadata": {"userId": %q},
			"customer": {"email": "a@b.co", "customer_code": "CUS_x"},
			"plan": {"plan_code": "PLN_m", "interval": "monthly"},
			"subscription_code": "SUB_1"
		}
	}`, time.Now().Format(time.RFC3339), userID))
}

func postWebhook(t *testing.T, env *testEnv, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/webhooks/payment", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ----- webhook endpoint -----

func TestWebhookEndpoint_RejectsInvalidSignature(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := chargeSuccessBody("user-1")

	resp := postWebhook(t, env, body, signBody("wrong-secret", body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["received"] != false {
		t.Fatalf("body = %v", out)
	}
	if env.subs.saveCalls != 0 {
		t.Fatal("an unauthenticated payload must never reach the store")
	}
}

func TestWebhookEndpoint_RejectsMissingSignature(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	resp := postWebhook(t, env, chargeSuccessBody("user-1"), "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWebhookEndpoint_AppliesRenewal(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := chargeSuccessBody("user-1")

	resp := postWebhook(t, env, body, signBody(testWebhookSecret, body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["received"] != true {
		t.Fatalf("body = %v", out)
	}

	rec, err := env.subs.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	if rec.Status != model.SubscriptionStatusActive || rec.Expiry == nil {
		t.Fatalf("record not activated: %+v", rec)
	}
}

func TestWebhookEndpoint_ReplayAcknowledgedWithoutRewrite(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := chargeSuccessBody("user-1")
	sig := signBody(testWebhookSecret, body)

	if resp := postWebhook(t, env, body, sig); resp.StatusCode != http.StatusOK {
		t.Fatalf("first delivery status = %d", resp.StatusCode)
	}
	first, _ := env.subs.FindByUserID(context.Background(), "user-1")

	if resp := postWebhook(t, env, body, sig); resp.StatusCode != http.StatusOK {
		t.Fatalf("replay status = %d", resp.StatusCode)
	}
	second, _ := env.subs.FindByUserID(context.Background(), "user-1")
	if !second.Expiry.Equal(*first.Expiry) {
		t.Fatal("replay must not move the expiry")
	}
}

func TestWebhookEndpoint_UnresolvableUserIsBadRequest(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := chargeSuccessBody("") // no metadata identity and no stored customer

	resp := postWebhook(t, env, body, signBody(testWebhookSecret, body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if env.subs.saveCalls != 0 {
		t.Fatal("unresolvable events must not write the store")
	}
}

func TestWebhookEndpoint_UnknownEventTypeAcknowledged(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := []byte(`{"event": "invoice.create", "data": {"id": 9}}`)

	resp := postWebhook(t, env, body, signBody(testWebhookSecret, body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unhandled events must be acknowledged: status = %d", resp.StatusCode)
	}
	if env.subs.saveCalls != 0 {
		t.Fatal("unhandled events must not write the store")
	}
}

func TestWebhookEndpoint_MalformedPayloadIsBadRequest(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	body := []byte(`{"event": `)

	resp := postWebhook(t, env, body, signBody(testWebhookSecret, body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// ----- redirect verification endpoint -----

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func getVerify(t *testing.T, env *testEnv, token, reference string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/payments/verify?reference="+url.QueryEscape(reference), nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func redirectQuery(t *testing.T, resp *http.Response) url.Values {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	return loc.Query()
}

func TestVerifyEndpoint_SuccessRedirect(t *testing.T) {
	provider := &stubProvider{
		verifyTxn: &adapter.Transaction{
			Reference:         "ref-1",
			Status:            "success",
			PaidAt:            time.Now(),
			CustomerEmail:     "a@b.co",
			CustomerCode:      "CUS_x",
			AuthorizationCode: "AUTH_1",
			PlanCode:          "PLN_m",
			Metadata: model.CheckoutMetadata{
				UserID:   "user-1",
				PlanCode: "PLN_m",
				Interval: model.IntervalMonthly,
			},
		},
		createSub: &adapter.ProviderSubscription{SubscriptionCode: "SUB_1", EmailToken: "tok"},
	}
	env := newTestEnv(t, provider)
	token, err := env.auth.Mint("user-1", "a@b.co", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	q := redirectQuery(t, getVerify(t, env, token, "ref-1"))
	if q.Get("success") != "1" {
		t.Fatalf("redirect query = %v", q)
	}
	if q.Get("error") != "" {
		t.Fatalf("success redirect must not carry an error: %v", q)
	}

	rec, err := env.subs.FindByUserID(context.Background(), "user-1")
	if err != nil || rec.Status != model.SubscriptionStatusActive {
		t.Fatalf("record: %+v err=%v", rec, err)
	}
}

func TestVerifyEndpoint_UnauthenticatedRedirect(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	q := redirectQuery(t, getVerify(t, env, "", "ref-1"))
	if q.Get("error") != "unauthenticated" {
		t.Fatalf("redirect query = %v", q)
	}
}

func TestVerifyEndpoint_FailedVerificationRedirect(t *testing.T) {
	provider := &stubProvider{verifyTxn: &adapter.Transaction{Reference: "ref-1", Status: "abandoned"}}
	env := newTestEnv(t, provider)
	token, _ := env.auth.Mint("user-1", "a@b.co", time.Hour)

	q := redirectQuery(t, getVerify(t, env, token, "ref-1"))
	if q.Get("error") != "verification_failed" {
		t.Fatalf("redirect query = %v", q)
	}
	if env.subs.saveCalls != 0 {
		t.Fatal("a failed verification must not activate anything")
	}
}

func TestVerifyEndpoint_ProviderOutageRedirect(t *testing.T) {
	provider := &stubProvider{verifyErr: domain.ErrProviderUnavailable}
	env := newTestEnv(t, provider)
	token, _ := env.auth.Mint("user-1", "a@b.co", time.Hour)

	q := redirectQuery(t, getVerify(t, env, token, "ref-1"))
	if q.Get("error") != "provider_unavailable" {
		t.Fatalf("redirect query = %v", q)
	}
}

func TestVerifyEndpoint_AcceptsTrxrefParam(t *testing.T) {
	provider := &stubProvider{verifyErr: domain.ErrNotFound}
	env := newTestEnv(t, provider)
	token, _ := env.auth.Mint("user-1", "a@b.co", time.Hour)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/payments/verify?trxref=ref-2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	q := redirectQuery(t, resp)
	if q.Get("error") != "transaction_not_found" {
		t.Fatalf("redirect query = %v", q)
	}
}

// ----- checkout and read routes -----

func TestCheckoutEndpoint_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	resp, err := http.Post(env.server.URL+"/payments/checkout", "application/json",
		bytes.NewReader([]byte(`{"plan_code":"PLN_m"}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCheckoutEndpoint_ReturnsAuthorizationURL(t *testing.T) {
	provider := &stubProvider{
		plans:   []*model.Plan{{Code: "PLN_m", Name: "Monthly", Interval: model.IntervalMonthly}},
		initURL: "https://checkout.paystack.com/abc123",
	}
	env := newTestEnv(t, provider)
	token, _ := env.auth.Mint("user-1", "a@b.co", time.Hour)

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/payments/checkout",
		bytes.NewReader([]byte(`{"plan_code":"PLN_m"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["authorization_url"] != provider.initURL {
		t.Fatalf("body = %v", out)
	}
}

func TestSubscriptionEndpoint_DefaultsToNone(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	token, _ := env.auth.Mint("user-1", "a@b.co", time.Hour)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/subscriptions/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "none" || out["has_access"] != false {
		t.Fatalf("body = %v", out)
	}
}
