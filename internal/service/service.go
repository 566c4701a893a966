package service

import (
	"context"
	"time"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
)

type InventoryService interface {
	GetGame(ctx context.Context, id int32) (*domain.Game, error)
	ListGames(ctx context.Context) ([]domain.Game, error)
	CreateGame(ctx context.Context, caller domain.Caller, spec domain.GameSpec) (*domain.Game, error)
	UpdateGame(ctx context.Context, caller domain.Caller, id int32, patch domain.GamePatch) (*domain.Game, error)
	RemoveGame(ctx context.Context, caller domain.Caller, id int32) error
	AdjustQuantity(ctx context.Context, caller domain.Caller, id int32, delta int32) (*domain.Game, error)
	Reconcile(ctx context.Context, caller domain.Caller, id int32) (*domain.StockReport, error)
}

type RentalService interface {
	CreateRental(ctx context.Context, caller domain.Caller, index string, gameID int32) (*domain.Rental, error)
	ReturnRental(ctx context.Context, caller domain.Caller, id int32) (*domain.Rental, error)
	DeleteRental(ctx context.Context, caller domain.Caller, id int32) error
	GetRental(ctx context.Context, caller domain.Caller, id int32) (*domain.Rental, error)
	ListRentals(ctx context.Context, caller domain.Caller, filter domain.RentalFilter) ([]domain.Rental, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, caller domain.Caller, userID, gameID int32) (*domain.Order, error)
	AcceptOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error)
	CancelOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Caller, id int32) (*domain.Order, error)
	ListOrders(ctx context.Context, caller domain.Caller, filter domain.OrderFilter) ([]domain.Order, error)

	// Expire and ListStale are driven by the expiration sweeper, not by callers.
	Expire(ctx context.Context, id int32) (*domain.Order, error)
	ListStale(ctx context.Context, createdBefore time.Time) ([]domain.Order, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	CreateUser(ctx context.Context, caller domain.Caller, input NewUser) (*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error)
}

type SnapshotService interface {
	Snapshot(ctx context.Context) (*broadcast.Snapshot, error)
}

// NewUser is the input for an administrator-created account.
type NewUser struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	BorrowerIndex string `json:"borrower_index"`
	Role          string `json:"role"`
	Password      string `json:"password"`
}
