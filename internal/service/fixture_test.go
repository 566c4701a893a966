package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/repository/memory"
)

var (
	admin = domain.Caller{UserID: 1, Role: domain.RoleAdmin}
	staff = domain.Caller{UserID: 2, Role: domain.RoleRentalStaff}
)

type fixture struct {
	store     *memory.Store
	pub       *recordingPublisher
	inventory InventoryService
	rentals   RentalService
	orders    OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		pub:       pub,
		inventory: NewInventoryService(store, store.Repositories, pub),
		rentals:   NewRentalService(store, store.Repositories, pub),
		orders:    NewOrderService(store, store.Repositories, pub),
	}
}

func (f *fixture) game(t *testing.T, title string, amount int32) *domain.Game {
	t.Helper()
	game, err := f.inventory.CreateGame(context.Background(), admin, domain.GameSpec{Title: title, Amount: amount})
	require.NoError(t, err)
	f.pub.reset()
	return game
}

func (f *fixture) user(t *testing.T, email, index string) domain.Caller {
	t.Helper()
	u := &domain.User{Email: email, Name: email, BorrowerIndex: index, Role: domain.RoleUser}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return domain.Caller{UserID: u.ID, Role: u.Role}
}

func (f *fixture) quantity(t *testing.T, gameID int32) int32 {
	t.Helper()
	game, err := f.store.Games.GetByID(context.Background(), gameID)
	require.NoError(t, err)
	return game.Quantity
}

// assertStockInvariants checks 0 <= quantity <= amount and
// amount == quantity + active rentals for every game.
func (f *fixture) assertStockInvariants(t *testing.T) {
	t.Helper()
	assertStockInvariants(t, f.store.Repositories)
}

func assertStockInvariants(t *testing.T, repos repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	games, err := repos.Games.List(ctx)
	require.NoError(t, err)
	for _, g := range games {
		assert.GreaterOrEqual(t, g.Quantity, int32(0), g.Title)
		assert.LessOrEqual(t, g.Quantity, g.Amount, g.Title)
		active, err := repos.Rentals.CountActiveByGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, g.Amount, g.Quantity+active, "stock for %s does not reconcile", g.Title)
	}
}
