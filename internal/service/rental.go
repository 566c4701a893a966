package service

import (
	"context"
	"time"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/security"
)

type rentalService struct {
	tx        repository.Transactor
	rentals   repository.RentalRepository
	publisher broadcast.Publisher
	now       func() time.Time
}

func NewRentalService(tx repository.Transactor, repos repository.Repositories, publisher broadcast.Publisher) RentalService {
	return &rentalService{
		tx:        tx,
		rentals:   repos.Rentals,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRental lends one copy of a game. The decrement is conditional in the
// store, so concurrent requests for the last copy produce exactly one rental.
func (s *rentalService) CreateRental(ctx context.Context, caller domain.Caller, index string, gameID int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateRental", "callerID", caller.UserID, "gameID", gameID)

	if err := security.Require(caller, security.ManageRentals); err != nil {
		logExit("rentalService.CreateRental", err, "callerID", caller.UserID)
		return nil, err
	}
	if err := domain.ValidateBorrowerIndex(index); err != nil {
		logExit("rentalService.CreateRental", err, "gameID", gameID)
		return nil, err
	}

	var (
		rental *domain.Rental
		game   *domain.Game
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		game, err = repos.Games.AdjustQuantity(ctx, gameID, -1)
		if err != nil {
			return stockError(err, domain.ErrOutOfStock, "create_rental")
		}
		rental = &domain.Rental{
			Index:    index,
			GameID:   gameID,
			RentedBy: caller.UserID,
			RentedAt: s.now(),
		}
		return repos.Rentals.Create(ctx, rental)
	})
	if err != nil {
		logExit("rentalService.CreateRental", err, "gameID", gameID)
		return nil, err
	}

	metrics.RecordRental("created")
	s.publisher.Publish(broadcast.RentalCreated(rental), broadcast.GameChanged(game))
	logger.ExitMethod("rentalService.CreateRental", "rentalID", rental.ID, "gameID", gameID, "quantity", game.Quantity)
	return rental, nil
}

// ReturnRental closes an active rental and puts the copy back on the shelf.
// A game already at full stock rejects the return and the rental stays open.
func (s *rentalService) ReturnRental(ctx context.Context, caller domain.Caller, id int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.ReturnRental", "callerID", caller.UserID, "rentalID", id)

	if err := security.Require(caller, security.ManageRentals); err != nil {
		logExit("rentalService.ReturnRental", err, "callerID", caller.UserID)
		return nil, err
	}

	var (
		rental *domain.Rental
		game   *domain.Game
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		rental, err = repos.Rentals.MarkReturned(ctx, id, s.now())
		if err != nil {
			return err
		}
		game, err = repos.Games.AdjustQuantity(ctx, rental.GameID, 1)
		if err != nil {
			return stockError(err, domain.ErrFullStock, "return_rental")
		}
		return nil
	})
	if err != nil {
		logExit("rentalService.ReturnRental", err, "rentalID", id)
		return nil, err
	}

	metrics.RecordRental("returned")
	s.publisher.Publish(broadcast.RentalStatusChanged(rental), broadcast.GameChanged(game))
	logger.ExitMethod("rentalService.ReturnRental", "rentalID", id, "gameID", game.ID, "quantity", game.Quantity)
	return rental, nil
}

// DeleteRental hard-deletes a ledger row. It does not restore quantity:
// deleting an active rental leaves the copy counted as out until an
// administrator corrects the stock.
func (s *rentalService) DeleteRental(ctx context.Context, caller domain.Caller, id int32) error {
	logger.EnterMethod("rentalService.DeleteRental", "callerID", caller.UserID, "rentalID", id)

	if err := security.Require(caller, security.ManageRentals); err != nil {
		logExit("rentalService.DeleteRental", err, "callerID", caller.UserID)
		return err
	}

	var deleted *domain.Rental
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rental, err := repos.Rentals.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted = rental
		return repos.Rentals.Delete(ctx, id)
	})
	if err != nil {
		logExit("rentalService.DeleteRental", err, "rentalID", id)
		return err
	}

	if deleted.Active() {
		logger.Warn("Deleted an active rental without restoring stock", "rentalID", id, "gameID", deleted.GameID)
	}
	metrics.RecordRental("deleted")
	s.publisher.Publish(broadcast.RentalDeleted(id))
	logger.ExitMethod("rentalService.DeleteRental", "rentalID", id)
	return nil
}

func (s *rentalService) GetRental(ctx context.Context, caller domain.Caller, id int32) (*domain.Rental, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.rentals.GetByID(ctx, id)
}

func (s *rentalService) ListRentals(ctx context.Context, caller domain.Caller, filter domain.RentalFilter) ([]domain.Rental, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.rentals.List(ctx, filter)
}
