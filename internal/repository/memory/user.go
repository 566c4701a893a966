package memory

import (
	"context"
	"strings"
	"time"

	"boardgame-rental-backend/internal/domain"
)

type userRepository struct {
	h *handle
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.h.do(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return domain.ErrDuplicateEmail
			}
		}
		u.ID = st.id("users")
		u.CreatedOn = time.Now().UTC()
		st.users[u.ID] = *u
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var out *domain.User
	err := r.h.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.h.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}
