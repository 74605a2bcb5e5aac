package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `user_id, status, plan_code, expiry, customer_code, subscription_token, subscription_code, last_event_at, updated_at`

// Save upserts the record keyed by user id. The conflict predicate rejects
// writes whose last_event_at is not strictly newer than the stored one, so
// the two uncoordinated write paths cannot clobber newer state and an
// identical replay cannot re-apply state it already applied.
func (r *subscriptionRepo) Save(ctx context.Context, s *model.SubscriptionRecord) error {
	if s == nil || s.UserID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscription_records (
  user_id, status, plan_code, expiry, customer_code, subscription_token, subscription_code, last_event_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id) DO UPDATE SET
  status=EXCLUDED.status, plan_code=EXCLUDED.plan_code, expiry=EXCLUDED.expiry,
  customer_code=EXCLUDED.customer_code, subscription_token=EXCLUDED.subscription_token,
  subscription_code=EXCLUDED.subscription_code, last_event_at=EXCLUDED.last_event_at,
  updated_at=EXCLUDED.updated_at
WHERE subscription_records.last_event_at IS NULL
   OR EXCLUDED.last_event_at IS NULL
   OR EXCLUDED.last_event_at > subscription_records.last_event_at;`

	tag, err := r.pool.Exec(ctx, q, s.UserID, s.Status, s.PlanCode, s.Expiry, s.CustomerCode, s.SubscriptionToken, s.SubscriptionCode, s.LastEventAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") { // integrity constraint violation
			return domain.ErrInvalidArgument
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleEvent
	}
	return nil
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscription_records WHERE user_id=$1;`
	return r.queryOne(ctx, q, userID)
}

func (r *subscriptionRepo) FindByCustomerCode(ctx context.Context, customerCode string) (*model.SubscriptionRecord, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscription_records WHERE customer_code=$1 LIMIT 1;`
	return r.queryOne(ctx, q, customerCode)
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	const q = `
UPDATE subscription_records
   SET status='none', updated_at=$1
 WHERE status='active' AND expiry IS NOT NULL AND expiry < $1;`
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, q string, args ...interface{}) (*model.SubscriptionRecord, error) {
	row := r.pool.QueryRow(ctx, q, args...)
	var s model.SubscriptionRecord
	err := row.Scan(&s.UserID, &s.Status, &s.PlanCode, &s.Expiry, &s.CustomerCode, &s.SubscriptionToken, &s.SubscriptionCode, &s.LastEventAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return &s, nil
}
