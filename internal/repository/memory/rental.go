package memory

import (
	"context"
	"slices"
	"time"

	"boardgame-rental-backend/internal/domain"
)

type rentalRepository struct {
	h *handle
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	return r.h.do(func(st *state) error {
		if _, ok := st.games[rt.GameID]; !ok {
			return domain.ErrGameNotFound
		}
		if rt.RentedAt.IsZero() {
			rt.RentedAt = time.Now().UTC()
		}
		rt.ID = st.id("rentals")
		rt.ReturnedAt = nil
		st.rentals[rt.ID] = *rt
		return nil
	})
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.h.do(func(st *state) error {
		rt, ok := st.rentals[id]
		if !ok {
			return domain.ErrRentalNotFound
		}
		out = &rt
		return nil
	})
	return out, err
}

func (r *rentalRepository) List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.h.do(func(st *state) error {
		for _, rt := range st.rentals {
			if filter.GameID != 0 && rt.GameID != filter.GameID {
				continue
			}
			if filter.ActiveOnly && !rt.Active() {
				continue
			}
			out = append(out, rt)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Rental) int {
		if c := b.RentedAt.Compare(a.RentedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, err
}

func (r *rentalRepository) CountActiveByGame(ctx context.Context, gameID int32) (int32, error) {
	var n int32
	err := r.h.do(func(st *state) error {
		for _, rt := range st.rentals {
			if rt.GameID == gameID && rt.Active() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *rentalRepository) MarkReturned(ctx context.Context, id int32, at time.Time) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.h.do(func(st *state) error {
		rt, ok := st.rentals[id]
		if !ok {
			return domain.ErrRentalNotFound
		}
		if !rt.Active() {
			return domain.ErrAlreadyReturned
		}
		rt.ReturnedAt = &at
		st.rentals[id] = rt
		out = &rt
		return nil
	})
	return out, err
}

func (r *rentalRepository) Delete(ctx context.Context, id int32) error {
	return r.h.do(func(st *state) error {
		if _, ok := st.rentals[id]; !ok {
			return domain.ErrRentalNotFound
		}
		delete(st.rentals, id)
		return nil
	})
}
