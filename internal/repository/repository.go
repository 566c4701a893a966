package repository

import (
	"context"
	"time"

	"boardgame-rental-backend/internal/domain"
)

type GameRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	GetByID(ctx context.Context, id int32) (*domain.Game, error)
	// GetForUpdate reads the game and holds its row lock until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Game, error)
	List(ctx context.Context) ([]domain.Game, error)
	Update(ctx context.Context, game *domain.Game) error
	Delete(ctx context.Context, id int32) error

	// AdjustQuantity applies quantity += delta only when the result stays
	// within [0, amount]. The check and the write are a single statement, so
	// concurrent callers on the same game are serialized by the store.
	AdjustQuantity(ctx context.Context, id int32, delta int32) (*domain.Game, error)
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, error)
	CountActiveByGame(ctx context.Context, gameID int32) (int32, error)

	// MarkReturned sets returned_at only on an active rental.
	MarkReturned(ctx context.Context, id int32, at time.Time) (*domain.Rental, error)
	Delete(ctx context.Context, id int32) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int32) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	CountWaitingByGame(ctx context.Context, gameID int32) (int32, error)
	ListStaleWaiting(ctx context.Context, createdBefore time.Time) ([]domain.Order, error)

	// Transition moves a Waiting order to status. Zero affected rows means the
	// order was no longer Waiting and yields domain.ErrOrderNotWaiting.
	Transition(ctx context.Context, id int32, status domain.OrderStatus, rentalID *int32) (*domain.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories struct {
	Games   GameRepository
	Rentals RentalRepository
	Orders  OrderRepository
	Users   UserRepository
}

// Transactor runs fn inside a single transaction. Every repository reached
// through repos shares it; a non-nil error from fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
