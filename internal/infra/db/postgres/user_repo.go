package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

// userRepo reads the externally owned user directory. This subsystem never
// writes it.
type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, email, name FROM users WHERE id=$1;`
	row := r.pool.QueryRow(ctx, q, id)
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return &u, nil
}
