package service

import (
	"context"
	"fmt"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/security"
)

type inventoryService struct {
	tx        repository.Transactor
	games     repository.GameRepository
	rentals   repository.RentalRepository
	publisher broadcast.Publisher
}

func NewInventoryService(tx repository.Transactor, repos repository.Repositories, publisher broadcast.Publisher) InventoryService {
	return &inventoryService{
		tx:        tx,
		games:     repos.Games,
		rentals:   repos.Rentals,
		publisher: publisher,
	}
}

func (s *inventoryService) GetGame(ctx context.Context, id int32) (*domain.Game, error) {
	return s.games.GetByID(ctx, id)
}

func (s *inventoryService) ListGames(ctx context.Context) ([]domain.Game, error) {
	return s.games.List(ctx)
}

func (s *inventoryService) CreateGame(ctx context.Context, caller domain.Caller, spec domain.GameSpec) (*domain.Game, error) {
	logger.EnterMethod("inventoryService.CreateGame", "callerID", caller.UserID, "title", spec.Title)

	if err := security.Require(caller, security.ManageGames); err != nil {
		logExit("inventoryService.CreateGame", err, "callerID", caller.UserID)
		return nil, err
	}

	game := spec.Game()
	if err := game.Validate(); err != nil {
		logExit("inventoryService.CreateGame", err, "title", spec.Title)
		return nil, err
	}
	if err := s.games.Create(ctx, game); err != nil {
		logExit("inventoryService.CreateGame", err, "title", spec.Title)
		return nil, err
	}

	s.publisher.Publish(broadcast.GameChanged(game))
	logger.ExitMethod("inventoryService.CreateGame", "gameID", game.ID)
	return game, nil
}

func (s *inventoryService) UpdateGame(ctx context.Context, caller domain.Caller, id int32, patch domain.GamePatch) (*domain.Game, error) {
	logger.EnterMethod("inventoryService.UpdateGame", "callerID", caller.UserID, "gameID", id)

	if err := security.Require(caller, security.ManageGames); err != nil {
		logExit("inventoryService.UpdateGame", err, "callerID", caller.UserID)
		return nil, err
	}

	var updated *domain.Game
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		game, err := repos.Games.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(game)
		if err := game.Validate(); err != nil {
			return err
		}
		if err := repos.Games.Update(ctx, game); err != nil {
			return err
		}
		updated = game
		return nil
	})
	if err != nil {
		logExit("inventoryService.UpdateGame", err, "gameID", id)
		return nil, err
	}

	s.publisher.Publish(broadcast.GameChanged(updated))
	logger.ExitMethod("inventoryService.UpdateGame", "gameID", id, "amount", updated.Amount, "quantity", updated.Quantity)
	return updated, nil
}

// RemoveGame deletes a game that has no active rentals and no waiting
// orders. Returned rentals and closed orders go with it.
func (s *inventoryService) RemoveGame(ctx context.Context, caller domain.Caller, id int32) error {
	logger.EnterMethod("inventoryService.RemoveGame", "callerID", caller.UserID, "gameID", id)

	if err := security.Require(caller, security.ManageGames); err != nil {
		logExit("inventoryService.RemoveGame", err, "callerID", caller.UserID)
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// The row lock keeps a concurrent rental from slipping in between the checks and the delete.
		if _, err := repos.Games.GetForUpdate(ctx, id); err != nil {
			return err
		}
		active, err := repos.Rentals.CountActiveByGame(ctx, id)
		if err != nil {
			return err
		}
		waiting, err := repos.Orders.CountWaitingByGame(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 || waiting > 0 {
			return fmt.Errorf("game %d has %d active rentals and %d waiting orders: %w", id, active, waiting, domain.ErrGameInUse)
		}
		return repos.Games.Delete(ctx, id)
	})
	if err != nil {
		logExit("inventoryService.RemoveGame", err, "gameID", id)
		return err
	}

	s.publisher.Publish(broadcast.GameDeleted(id))
	logger.ExitMethod("inventoryService.RemoveGame", "gameID", id)
	return nil
}

// AdjustQuantity is an administrative stock correction.
func (s *inventoryService) AdjustQuantity(ctx context.Context, caller domain.Caller, id int32, delta int32) (*domain.Game, error) {
	logger.EnterMethod("inventoryService.AdjustQuantity", "callerID", caller.UserID, "gameID", id, "delta", delta)

	if err := security.Require(caller, security.ManageGames); err != nil {
		logExit("inventoryService.AdjustQuantity", err, "callerID", caller.UserID)
		return nil, err
	}

	game, err := s.games.AdjustQuantity(ctx, id, delta)
	if err != nil {
		logExit("inventoryService.AdjustQuantity", err, "gameID", id, "delta", delta)
		return nil, err
	}

	s.publisher.Publish(broadcast.GameChanged(game))
	logger.ExitMethod("inventoryService.AdjustQuantity", "gameID", id, "quantity", game.Quantity)
	return game, nil
}

// Reconcile reports whether amount == quantity + active rentals holds.
func (s *inventoryService) Reconcile(ctx context.Context, caller domain.Caller, id int32) (*domain.StockReport, error) {
	if err := security.Require(caller, security.ManageGames); err != nil {
		return nil, err
	}

	var report *domain.StockReport
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		game, err := repos.Games.GetByID(ctx, id)
		if err != nil {
			return err
		}
		active, err := repos.Rentals.CountActiveByGame(ctx, id)
		if err != nil {
			return err
		}
		report = &domain.StockReport{
			GameID:        id,
			Amount:        game.Amount,
			Quantity:      game.Quantity,
			ActiveRentals: active,
			Consistent:    game.Amount == game.Quantity+active,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		logger.Warn("Stock does not reconcile", "gameID", id, "amount", report.Amount,
			"quantity", report.Quantity, "activeRentals", report.ActiveRentals)
	}
	return report, nil
}
