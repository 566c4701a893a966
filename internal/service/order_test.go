package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
)

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "123456")

		order, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusWaiting, order.Status)
		assert.Equal(t, user.UserID, order.UserID)
		// Waiting orders hold no stock.
		assert.Equal(t, int32(1), f.quantity(t, game.ID))
		assert.Empty(t, f.pub.types())
	})

	t.Run("Out Of Stock", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "123456")
		_, err := f.rentals.CreateRental(ctx, staff, "654321", game.ID)
		require.NoError(t, err)

		_, err = f.orders.CreateOrder(ctx, user, user.UserID, game.ID)
		assert.ErrorIs(t, err, domain.ErrOutOfStock)
		assert.Equal(t, domain.KindNotAcceptable, domain.KindOf(err))
	})

	t.Run("Requester Without Borrower Index", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "")

		_, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidBorrowerIndex)
		assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

		_, err = f.orders.CreateOrder(ctx, staff, user.UserID, game.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidBorrowerIndex)

		orders, err := f.store.Orders.List(ctx, domain.OrderFilter{})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("User Cannot Order For Another", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "123456")
		other := f.user(t, "o@example.com", "654321")

		_, err := f.orders.CreateOrder(ctx, user, other.UserID, game.ID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

		_, err = f.orders.CreateOrder(ctx, staff, other.UserID, game.ID)
		assert.NoError(t, err)
	})
}

func TestOrderService_AcceptOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 2)
		user := f.user(t, "u@example.com", "SD4321")
		order, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		require.NoError(t, err)

		accepted, err := f.orders.AcceptOrder(ctx, staff, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusAccepted, accepted.Status)
		require.NotNil(t, accepted.RentalID)

		rental, err := f.store.Rentals.GetByID(ctx, *accepted.RentalID)
		require.NoError(t, err)
		assert.Equal(t, "SD4321", rental.Index)
		require.NotNil(t, rental.OrderID)
		assert.Equal(t, order.ID, *rental.OrderID)
		assert.Equal(t, int32(1), f.quantity(t, game.ID))
		assert.Equal(t, []broadcast.EventType{broadcast.EventRentalCreated, broadcast.EventGameQuantityChanged}, f.pub.types())
		f.assertStockInvariants(t)
	})

	t.Run("Stock Exhausted After Ordering", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "123456")
		order, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		require.NoError(t, err)
		_, err = f.rentals.CreateRental(ctx, staff, "654321", game.ID)
		require.NoError(t, err)
		f.pub.reset()

		_, err = f.orders.AcceptOrder(ctx, staff, order.ID)
		assert.ErrorIs(t, err, domain.ErrOutOfStock)

		stored, err := f.store.Orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusWaiting, stored.Status)
		assert.Nil(t, stored.RentalID)

		rentals, err := f.store.Rentals.List(ctx, domain.RentalFilter{GameID: game.ID})
		require.NoError(t, err)
		assert.Len(t, rentals, 1)
		assert.Nil(t, rentals[0].OrderID)
		assert.Empty(t, f.pub.types())
		f.assertStockInvariants(t)
	})

	t.Run("Requester Without Borrower Index", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "")
		// CreateOrder refuses this requester, so write the row directly.
		order := &domain.Order{UserID: user.UserID, GameID: game.ID, CreatedAt: time.Now().UTC()}
		require.NoError(t, f.store.Orders.Create(ctx, order))

		_, err := f.orders.AcceptOrder(ctx, staff, order.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidBorrowerIndex)

		stored, err := f.store.Orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusWaiting, stored.Status)
		assert.Equal(t, int32(1), f.quantity(t, game.ID))
	})

	t.Run("User Role Forbidden", func(t *testing.T) {
		f := newFixture(t)
		game := f.game(t, "Azul", 1)
		user := f.user(t, "u@example.com", "123456")
		order, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		require.NoError(t, err)

		_, err = f.orders.AcceptOrder(ctx, user, order.ID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})
}

func TestOrderService_StateMachineIsMonotone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game := f.game(t, "Azul", 5)
	user := f.user(t, "u@example.com", "123456")

	newOrder := func() *domain.Order {
		order, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
		require.NoError(t, err)
		return order
	}

	accepted := newOrder()
	_, err := f.orders.AcceptOrder(ctx, staff, accepted.ID)
	require.NoError(t, err)

	canceled := newOrder()
	_, err = f.orders.CancelOrder(ctx, user, canceled.ID)
	require.NoError(t, err)

	expired := newOrder()
	f.pub.reset()
	_, err = f.orders.Expire(ctx, expired.ID)
	require.NoError(t, err)
	// The standalone job runner relies on expiry staying silent.
	assert.Empty(t, f.pub.types())

	for _, tc := range []struct {
		id   int32
		want domain.OrderStatus
	}{
		{accepted.ID, domain.OrderStatusAccepted},
		{canceled.ID, domain.OrderStatusCanceled},
		{expired.ID, domain.OrderStatusExpired},
	} {
		t.Run(string(tc.want), func(t *testing.T) {
			_, err := f.orders.AcceptOrder(ctx, staff, tc.id)
			assert.ErrorIs(t, err, domain.ErrOrderNotWaiting)
			_, err = f.orders.CancelOrder(ctx, staff, tc.id)
			assert.ErrorIs(t, err, domain.ErrOrderNotWaiting)
			_, err = f.orders.Expire(ctx, tc.id)
			assert.ErrorIs(t, err, domain.ErrOrderNotWaiting)

			stored, err := f.store.Orders.GetByID(ctx, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stored.Status)
		})
	}

	// Only the accepted order took a copy.
	assert.Equal(t, int32(4), f.quantity(t, game.ID))
	f.assertStockInvariants(t)
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game := f.game(t, "Azul", 1)
	owner := f.user(t, "owner@example.com", "123456")
	other := f.user(t, "other@example.com", "654321")
	order, err := f.orders.CreateOrder(ctx, owner, 0, game.ID)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, other, order.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	canceled, err := f.orders.CancelOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status)
	assert.Equal(t, int32(1), f.quantity(t, game.ID))
}

func TestOrderService_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game := f.game(t, "Azul", 3)
	alice := f.user(t, "alice@example.com", "123456")
	bob := f.user(t, "bob@example.com", "654321")
	aliceOrder, err := f.orders.CreateOrder(ctx, alice, 0, game.ID)
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, bob, 0, game.ID)
	require.NoError(t, err)

	mine, err := f.orders.ListOrders(ctx, alice, domain.OrderFilter{UserID: bob.UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, aliceOrder.ID, mine[0].ID)

	all, err := f.orders.ListOrders(ctx, staff, domain.OrderFilter{Status: domain.OrderStatusWaiting})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.orders.GetOrder(ctx, bob, aliceOrder.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.orders.ListOrders(ctx, staff, domain.OrderFilter{Status: "LOST"})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestOrderService_ListStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game := f.game(t, "Azul", 3)
	user := f.user(t, "u@example.com", "123456")

	old := &domain.Order{UserID: user.UserID, GameID: game.ID, CreatedAt: time.Now().Add(-25 * time.Hour)}
	require.NoError(t, f.store.Orders.Create(ctx, old))
	_, err := f.orders.CreateOrder(ctx, user, 0, game.ID)
	require.NoError(t, err)

	stale, err := f.orders.ListStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}
