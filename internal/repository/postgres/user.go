package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserDirectory {
	return &userRepository{base}
}

const userColumns = `id, name, email, provider, avatar_id, created_at, updated_at`

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetProvider(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND provider = true`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &user, nil
}
