package memory

import (
	"context"
	"slices"
	"time"

	"boardgame-rental-backend/internal/domain"
)

type orderRepository struct {
	h *handle
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	return r.h.do(func(st *state) error {
		if _, ok := st.games[o.GameID]; !ok {
			return domain.ErrGameNotFound
		}
		if _, ok := st.users[o.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		now := time.Now().UTC()
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		o.Status = domain.OrderStatusWaiting
		o.ID = st.id("orders")
		st.orders[o.ID] = *o
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	var out *domain.Order
	err := r.h.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return r.collect(func(o domain.Order) bool {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			return false
		}
		return filter.Status == "" || o.Status == filter.Status
	}, true)
}

func (r *orderRepository) CountWaitingByGame(ctx context.Context, gameID int32) (int32, error) {
	orders, err := r.collect(func(o domain.Order) bool {
		return o.GameID == gameID && o.Status == domain.OrderStatusWaiting
	}, false)
	return int32(len(orders)), err
}

func (r *orderRepository) ListStaleWaiting(ctx context.Context, createdBefore time.Time) ([]domain.Order, error) {
	return r.collect(func(o domain.Order) bool {
		return o.Status == domain.OrderStatusWaiting && o.CreatedAt.Before(createdBefore)
	}, false)
}

func (r *orderRepository) Transition(ctx context.Context, id int32, status domain.OrderStatus, rentalID *int32) (*domain.Order, error) {
	var out *domain.Order
	err := r.h.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if err := o.CheckStatus(); err != nil {
			return err
		}
		o.Status = status
		if rentalID != nil {
			o.RentalID = rentalID
		}
		o.UpdatedAt = time.Now().UTC()
		st.orders[id] = o
		out = &o
		return nil
	})
	return out, err
}

// collect returns matching orders, newest first when newestFirst is set and
// oldest first otherwise.
func (r *orderRepository) collect(match func(domain.Order) bool, newestFirst bool) ([]domain.Order, error) {
	var out []domain.Order
	err := r.h.do(func(st *state) error {
		for _, o := range st.orders {
			if match(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Order) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = int(a.ID - b.ID)
		}
		if newestFirst {
			return -c
		}
		return c
	})
	return out, err
}
