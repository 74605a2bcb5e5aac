package repository

import (
	"context"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
)

// UserRepository exposes the external user directory. Identity is owned
// elsewhere; this subsystem only reads it.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}
