package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.PaymentProvider = (*PaystackClient)(nil)

// PaystackClient implements adapter.PaymentProvider against the Paystack
// HTTP API. Calls are synchronous and single-attempt; retry, if any, is the
// provider's redelivery policy.
type PaystackClient struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystackClient(secretKey, baseURL string) *PaystackClient {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackClient{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PaystackClient) Name() string { return "paystack" }

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (p *PaystackClient) call(ctx context.Context, method, path string, body any) (*envelope, int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, fmt.Errorf("%w: http %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("unmarshal response: %w, body: %s", err, string(raw))
	}
	return &env, resp.StatusCode, nil
}

// --- transactions ---

type initializeRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Plan        string                 `json:"plan,omitempty"`
	Metadata    model.CheckoutMetadata `json:"metadata"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

func (p *PaystackClient) InitializeTransaction(ctx context.Context, session *model.CheckoutSession) (string, error) {
	req := initializeRequest{
		Email:       session.Email,
		Amount:      session.Amount,
		Currency:    session.Currency,
		Reference:   session.Reference,
		CallbackURL: session.CallbackURL,
		Plan:        session.PlanCode,
		Metadata:    session.Metadata,
	}
	env, _, err := p.call(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return "", err
	}
	if !env.Status {
		return "", fmt.Errorf("%w: %s", domain.ErrCheckoutInitFailed, env.Message)
	}
	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("unmarshal initialize data: %w", err)
	}
	if data.AuthorizationURL == "" {
		return "", fmt.Errorf("%w: no authorization url returned", domain.ErrCheckoutInitFailed)
	}
	return data.AuthorizationURL, nil
}

type transactionData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
	Customer  struct {
		Email        string `json:"email"`
		CustomerCode string `json:"customer_code"`
	} `json:"customer"`
	Authorization struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
	Plan     jsonPlan               `json:"plan"`
	Metadata model.CheckoutMetadata `json:"metadata"`
}

func (p *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*adapter.Transaction, error) {
	env, code, err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrVerificationFailed, env.Message)
	}
	var data transactionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal transaction data: %w", err)
	}
	txn := &adapter.Transaction{
		Reference:         data.Reference,
		Status:            data.Status,
		Amount:            data.Amount,
		Currency:          data.Currency,
		PaidAt:            parseProviderTime(data.PaidAt),
		CustomerEmail:     data.Customer.Email,
		CustomerCode:      data.Customer.CustomerCode,
		AuthorizationCode: data.Authorization.AuthorizationCode,
		PlanCode:          data.Plan.PlanCode,
		Metadata:          data.Metadata,
	}
	if txn.PlanCode == "" {
		txn.PlanCode = data.Metadata.PlanCode
	}
	return txn, nil
}

// --- plans ---

// jsonPlan tolerates both the object form and the legacy string form Paystack
// uses for the plan field on transactions.
type jsonPlan struct {
	PlanCode string
	Interval string
}

func (j *jsonPlan) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		j.PlanCode = s
		return nil
	}
	var obj struct {
		PlanCode string `json:"plan_code"`
		Interval string `json:"interval"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	j.PlanCode = obj.PlanCode
	j.Interval = obj.Interval
	return nil
}

type planData struct {
	Name        string `json:"name"`
	PlanCode    string `json:"plan_code"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
	Description string `json:"description"`
}

func (d planData) toModel() *model.Plan {
	interval, _ := model.ParseInterval(d.Interval)
	return &model.Plan{
		Code:        d.PlanCode,
		Name:        d.Name,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Interval:    interval,
		Description: d.Description,
	}
}

func (p *PaystackClient) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	env, _, err := p.call(ctx, http.MethodGet, "/plan", nil)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, env.Message)
	}
	var data []planData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal plan list: %w", err)
	}
	plans := make([]*model.Plan, 0, len(data))
	for _, d := range data {
		plans = append(plans, d.toModel())
	}
	return plans, nil
}

func (p *PaystackClient) GetPlan(ctx context.Context, code string) (*model.Plan, error) {
	env, status, err := p.call(ctx, http.MethodGet, "/plan/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || (!env.Status && status == http.StatusBadRequest) {
		return nil, domain.ErrNotFound
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, env.Message)
	}
	var data planData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return data.toModel(), nil
}

// --- subscriptions ---

type subscriptionData struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
	Customer         struct {
		Email        string `json:"email"`
		CustomerCode string `json:"customer_code"`
	} `json:"customer"`
	Plan jsonPlan `json:"plan"`
}

func (d subscriptionData) toAdapter() *adapter.ProviderSubscription {
	return &adapter.ProviderSubscription{
		SubscriptionCode: d.SubscriptionCode,
		EmailToken:       d.EmailToken,
		Status:           d.Status,
		CustomerEmail:    d.Customer.Email,
		CustomerCode:     d.Customer.CustomerCode,
		PlanCode:         d.Plan.PlanCode,
	}
}

func (p *PaystackClient) CreateSubscription(ctx context.Context, customer, planCode, authorizationCode string, startDate time.Time) (*adapter.ProviderSubscription, error) {
	req := map[string]any{
		"customer":      customer,
		"plan":          planCode,
		"authorization": authorizationCode,
	}
	if !startDate.IsZero() {
		req["start_date"] = startDate.UTC().Format(time.RFC3339)
	}
	env, _, err := p.call(ctx, http.MethodPost, "/subscription", req)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		if isDuplicateSubscription(env) {
			return nil, domain.ErrDuplicateSubscription
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrSubscriptionCreateFailed, env.Message)
	}
	var data subscriptionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal subscription data: %w", err)
	}
	return data.toAdapter(), nil
}

func isDuplicateSubscription(env *envelope) bool {
	if env.Code == "duplicate_subscription" {
		return true
	}
	msg := strings.ToLower(env.Message)
	return strings.Contains(msg, "already") && strings.Contains(msg, "subscri")
}

func (p *PaystackClient) ListSubscriptions(ctx context.Context, customerCode, planCode string) ([]*adapter.ProviderSubscription, error) {
	q := url.Values{}
	if customerCode != "" {
		q.Set("customer", customerCode)
	}
	if planCode != "" {
		q.Set("plan", planCode)
	}
	path := "/subscription"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	env, _, err := p.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, env.Message)
	}
	var data []subscriptionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal subscription list: %w", err)
	}
	subs := make([]*adapter.ProviderSubscription, 0, len(data))
	for _, d := range data {
		subs = append(subs, d.toAdapter())
	}
	return subs, nil
}

func (p *PaystackClient) EnableSubscription(ctx context.Context, code, emailToken string) error {
	return p.toggleSubscription(ctx, "/subscription/enable", code, emailToken)
}

func (p *PaystackClient) DisableSubscription(ctx context.Context, code, emailToken string) error {
	return p.toggleSubscription(ctx, "/subscription/disable", code, emailToken)
}

func (p *PaystackClient) toggleSubscription(ctx context.Context, path, code, emailToken string) error {
	env, _, err := p.call(ctx, http.MethodPost, path, map[string]string{
		"code":  code,
		"token": emailToken,
	})
	if err != nil {
		return err
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", domain.ErrOperationFailed, env.Message)
	}
	return nil
}

// parseProviderTime accepts the timestamp formats Paystack emits.
func parseProviderTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
