package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"boardgame-rental-backend/internal/domain"
)

const userColumns = `id, email, name, borrower_index, role, password_hash, created_on`

type userRepository struct {
	db querier
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, name, borrower_index, role, password_hash, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	u.CreatedOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, u.Email, u.Name, u.BorrowerIndex, u.Role, u.PasswordHash, u.CreatedOn).Scan(&u.ID)
	if pqCode(err) == pqUniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.BorrowerIndex, &u.Role, &u.PasswordHash, &u.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
