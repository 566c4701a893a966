// Package memory is an in-process store used for local development and tests.
// Transactions are fully serialized: WithinTx holds the store lock, works on a
// copy of the data and publishes it only when fn succeeds.
package memory

import (
	"context"
	"maps"
	"sync"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/repository"
)

type Store struct {
	mu    sync.Mutex
	state *state
	repository.Repositories
}

type state struct {
	games   map[int32]domain.Game
	rentals map[int32]domain.Rental
	orders  map[int32]domain.Order
	users   map[int32]domain.User
	nextID  map[string]int32
}

func newState() *state {
	return &state{
		games:   map[int32]domain.Game{},
		rentals: map[int32]domain.Rental{},
		orders:  map[int32]domain.Order{},
		users:   map[int32]domain.User{},
		nextID:  map[string]int32{},
	}
}

func (s *state) clone() *state {
	return &state{
		games:   maps.Clone(s.games),
		rentals: maps.Clone(s.rentals),
		orders:  maps.Clone(s.orders),
		users:   maps.Clone(s.users),
		nextID:  maps.Clone(s.nextID),
	}
}

func (s *state) id(table string) int32 {
	s.nextID[table]++
	return s.nextID[table]
}

func NewStore() *Store {
	s := &Store{state: newState()}
	s.Repositories = repositories(&handle{store: s})
	return s
}

func repositories(h *handle) repository.Repositories {
	return repository.Repositories{
		Games:   &gameRepository{h: h},
		Rentals: &rentalRepository{h: h},
		Orders:  &orderRepository{h: h},
		Users:   &userRepository{h: h},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, repositories(&handle{store: s, tx: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// handle gives a repository access to either the live state (taking the
// store lock per call) or to a transaction's private copy.
type handle struct {
	store *Store
	tx    *state
}

func (h *handle) do(fn func(st *state) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.state)
}
