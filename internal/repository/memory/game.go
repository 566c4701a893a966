package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"boardgame-rental-backend/internal/domain"
)

type gameRepository struct {
	h *handle
}

func titleTaken(st *state, title string, except int32) bool {
	for id, g := range st.games {
		if id != except && strings.EqualFold(g.Title, title) {
			return true
		}
	}
	return false
}

func (r *gameRepository) Create(ctx context.Context, g *domain.Game) error {
	return r.h.do(func(st *state) error {
		if titleTaken(st, g.Title, 0) {
			return domain.ErrDuplicateTitle
		}
		now := time.Now().UTC()
		g.ID = st.id("games")
		g.CreatedOn = now
		g.UpdatedOn = now
		st.games[g.ID] = *g
		return nil
	})
}

func (r *gameRepository) GetByID(ctx context.Context, id int32) (*domain.Game, error) {
	var out *domain.Game
	err := r.h.do(func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return domain.ErrGameNotFound
		}
		out = &g
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r *gameRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Game, error) {
	return r.GetByID(ctx, id)
}

func (r *gameRepository) List(ctx context.Context) ([]domain.Game, error) {
	var out []domain.Game
	err := r.h.do(func(st *state) error {
		for _, g := range st.games {
			out = append(out, g)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Game) int { return strings.Compare(a.Title, b.Title) })
	return out, err
}

func (r *gameRepository) Update(ctx context.Context, g *domain.Game) error {
	return r.h.do(func(st *state) error {
		if _, ok := st.games[g.ID]; !ok {
			return domain.ErrGameNotFound
		}
		if titleTaken(st, g.Title, g.ID) {
			return domain.ErrDuplicateTitle
		}
		if g.Quantity < 0 || g.Quantity > g.Amount {
			return domain.ErrInvalidQuantity
		}
		g.UpdatedOn = time.Now().UTC()
		st.games[g.ID] = *g
		return nil
	})
}

// Delete cascades to the game's rentals and orders, like the SQL schema.
func (r *gameRepository) Delete(ctx context.Context, id int32) error {
	return r.h.do(func(st *state) error {
		if _, ok := st.games[id]; !ok {
			return domain.ErrGameNotFound
		}
		delete(st.games, id)
		for rid, rt := range st.rentals {
			if rt.GameID == id {
				delete(st.rentals, rid)
			}
		}
		for oid, o := range st.orders {
			if o.GameID == id {
				delete(st.orders, oid)
			}
		}
		return nil
	})
}

func (r *gameRepository) AdjustQuantity(ctx context.Context, id int32, delta int32) (*domain.Game, error) {
	var out *domain.Game
	err := r.h.do(func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return domain.ErrGameNotFound
		}
		if !g.CanAdjust(delta) {
			return domain.ErrInvalidQuantity
		}
		g.Quantity += delta
		g.UpdatedOn = time.Now().UTC()
		st.games[id] = g
		out = &g
		return nil
	})
	return out, err
}
