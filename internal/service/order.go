package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/security"
)

type orderService struct {
	tx        repository.Transactor
	orders    repository.OrderRepository
	publisher broadcast.Publisher
	now       func() time.Time
}

func NewOrderService(tx repository.Transactor, repos repository.Repositories, publisher broadcast.Publisher) OrderService {
	return &orderService{
		tx:        tx,
		orders:    repos.Orders,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder reserves nothing: it records a Waiting request against a game
// that has at least one copy available right now. A User may only order for
// themselves; staff may order on behalf of anyone.
func (s *orderService) CreateOrder(ctx context.Context, caller domain.Caller, userID, gameID int32) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "callerID", caller.UserID, "userID", userID, "gameID", gameID)

	if userID == 0 {
		userID = caller.UserID
	}
	err := security.Require(caller, security.PlaceOrders)
	if err == nil {
		err = security.RequireSelfOr(caller, userID, security.ManageOrders)
	}
	if err != nil {
		logExit("orderService.CreateOrder", err, "callerID", caller.UserID)
		return nil, err
	}

	var order *domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		game, err := repos.Games.GetByID(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Quantity < 1 {
			metrics.RecordStockConflict("create_order")
			return domain.ErrOutOfStock
		}
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		// Accepting copies the requester's index onto the rental, so an
		// order without one could never be fulfilled.
		if err := domain.ValidateBorrowerIndex(user.BorrowerIndex); err != nil {
			return fmt.Errorf("user %d has no usable borrower index: %w", user.ID, err)
		}
		order = &domain.Order{UserID: userID, GameID: gameID, CreatedAt: s.now()}
		return repos.Orders.Create(ctx, order)
	})
	if err != nil {
		logExit("orderService.CreateOrder", err, "userID", userID, "gameID", gameID)
		return nil, err
	}

	logger.ExitMethod("orderService.CreateOrder", "orderID", order.ID)
	return order, nil
}

// AcceptOrder turns a Waiting order into a rental for the requester. Stock
// check, rental insert, decrement and status change commit together; any
// failure leaves the order Waiting and no rental behind.
func (s *orderService) AcceptOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error) {
	logger.EnterMethod("orderService.AcceptOrder", "callerID", caller.UserID, "orderID", id)

	if err := security.Require(caller, security.ManageOrders); err != nil {
		logExit("orderService.AcceptOrder", err, "callerID", caller.UserID)
		return nil, err
	}

	var (
		accepted *domain.Order
		rental   *domain.Rental
		game     *domain.Game
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := order.CheckStatus(); err != nil {
			return err
		}
		requester, err := repos.Users.GetByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		if err := domain.ValidateBorrowerIndex(requester.BorrowerIndex); err != nil {
			return fmt.Errorf("requester %d has no usable borrower index: %w", requester.ID, err)
		}

		game, err = repos.Games.AdjustQuantity(ctx, order.GameID, -1)
		if err != nil {
			return stockError(err, domain.ErrOutOfStock, "accept_order")
		}
		rental = &domain.Rental{
			Index:    requester.BorrowerIndex,
			GameID:   order.GameID,
			RentedBy: caller.UserID,
			OrderID:  &order.ID,
			RentedAt: s.now(),
		}
		if err := repos.Rentals.Create(ctx, rental); err != nil {
			return err
		}
		accepted, err = repos.Orders.Transition(ctx, id, domain.OrderStatusAccepted, &rental.ID)
		return err
	})
	if err != nil {
		logExit("orderService.AcceptOrder", err, "orderID", id)
		return nil, err
	}

	metrics.RecordRental("created")
	metrics.RecordOrderTransition(string(domain.OrderStatusAccepted))
	s.publisher.Publish(broadcast.RentalCreated(rental), broadcast.GameChanged(game))
	logger.ExitMethod("orderService.AcceptOrder", "orderID", id, "rentalID", rental.ID, "quantity", game.Quantity)
	return accepted, nil
}

// CancelOrder closes a Waiting order. The requester may cancel their own.
func (s *orderService) CancelOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error) {
	logger.EnterMethod("orderService.CancelOrder", "callerID", caller.UserID, "orderID", id)

	var canceled *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := security.RequireSelfOr(caller, order.UserID, security.ManageOrders); err != nil {
			return err
		}
		if err := order.CheckStatus(); err != nil {
			return err
		}
		canceled, err = repos.Orders.Transition(ctx, id, domain.OrderStatusCanceled, nil)
		return err
	})
	if err != nil {
		logExit("orderService.CancelOrder", err, "orderID", id)
		return nil, err
	}

	metrics.RecordOrderTransition(string(domain.OrderStatusCanceled))
	logger.ExitMethod("orderService.CancelOrder", "orderID", id)
	return canceled, nil
}

func (s *orderService) Expire(ctx context.Context, id int32) (*domain.Order, error) {
	logger.EnterMethod("orderService.Expire", "orderID", id)

	order, err := s.orders.Transition(ctx, id, domain.OrderStatusExpired, nil)
	if err != nil {
		logExit("orderService.Expire", err, "orderID", id)
		return nil, err
	}

	metrics.RecordOrderTransition(string(domain.OrderStatusExpired))
	logger.ExitMethod("orderService.Expire", "orderID", id)
	return order, nil
}

func (s *orderService) ListStale(ctx context.Context, createdBefore time.Time) ([]domain.Order, error) {
	return s.orders.ListStaleWaiting(ctx, createdBefore)
}

func (s *orderService) GetOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := security.RequireSelfOr(caller, order.UserID, security.ViewAll); err != nil {
		// Hide other users' orders rather than confirm they exist.
		if errors.Is(err, domain.ErrForbidden) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders matching filter; a caller without ViewAll only
// ever sees their own.
func (s *orderService) ListOrders(ctx context.Context, caller domain.Caller, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.InvalidInput("unknown order status %q", filter.Status)
	}
	if !security.Allowed(caller.Role, security.ViewAll) {
		filter.UserID = caller.UserID
	}
	return s.orders.List(ctx, filter)
}
