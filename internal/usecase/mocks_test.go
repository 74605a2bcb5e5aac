//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memSubRepo is a small in-memory implementation used by unit tests. It
// mirrors the store's last_event_at guard.
type memSubRepo struct {
	mu        sync.Mutex
	store     map[string]*model.SubscriptionRecord // by user id
	saveErr   error                                // used by tests to simulate save failures
	saveCalls int
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.SubscriptionRecord)}
}

func (m *memSubRepo) FindByUserID(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memSubRepo) FindByCustomerCode(ctx context.Context, customerCode string) (*model.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.store {
		if rec.CustomerCode == customerCode {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) Save(ctx context.Context, rec *model.SubscriptionRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if existing, ok := m.store[rec.UserID]; ok {
		if existing.LastEventAt != nil && rec.LastEventAt != nil && !rec.LastEventAt.After(*existing.LastEventAt) {
			return domain.ErrStaleEvent
		}
	}
	cp := *rec
	m.store[rec.UserID] = &cp
	return nil
}

func (m *memSubRepo) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.store {
		if rec.Status == model.SubscriptionStatusActive && rec.Expiry != nil && rec.Expiry.Before(now) {
			rec.Status = model.SubscriptionStatusNone
			rec.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// fakeProvider implements adapter.PaymentProvider with overridable hooks.
type fakeProvider struct {
	plans          []*model.Plan
	plansErr       error
	initializeURL  string
	initializeErr  error
	lastSession    *model.CheckoutSession
	verifyTxn      *adapter.Transaction
	verifyErr      error
	createSub      *adapter.ProviderSubscription
	createErr      error
	createCalls    int
	listSubs       []*adapter.ProviderSubscription
	listSubsErr    error
	disableErr     error
	disabledCodes  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) InitializeTransaction(ctx context.Context, session *model.CheckoutSession) (string, error) {
	f.lastSession = session
	if f.initializeErr != nil {
		return "", f.initializeErr
	}
	return f.initializeURL, nil
}

func (f *fakeProvider) VerifyTransaction(ctx context.Context, reference string) (*adapter.Transaction, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyTxn, nil
}

func (f *fakeProvider) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return f.plans, nil
}

func (f *fakeProvider) GetPlan(ctx context.Context, code string) (*model.Plan, error) {
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	for _, p := range f.plans {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, customer, planCode, authorizationCode string, startDate time.Time) (*adapter.ProviderSubscription, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createSub, nil
}

func (f *fakeProvider) ListSubscriptions(ctx context.Context, customerCode, planCode string) ([]*adapter.ProviderSubscription, error) {
	if f.listSubsErr != nil {
		return nil, f.listSubsErr
	}
	return f.listSubs, nil
}

func (f *fakeProvider) EnableSubscription(ctx context.Context, code, emailToken string) error {
	return nil
}

func (f *fakeProvider) DisableSubscription(ctx context.Context, code, emailToken string) error {
	if f.disableErr != nil {
		return f.disableErr
	}
	f.disabledCodes = append(f.disabledCodes, code)
	return nil
}

// memDeduper tracks processed keys in memory.
type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemDeduper() *memDeduper {
	return &memDeduper{seen: make(map[string]bool)}
}

func (m *memDeduper) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memDeduper) Forget(ctx context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

// memLocker always grants the lock.
type memLocker struct {
	mu      sync.Mutex
	held    map[string]string
	lockErr error
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (m *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.lockErr != nil {
		return "", m.lockErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = "token"
	return "token", nil
}

func (m *memLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
