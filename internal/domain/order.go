package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusWaiting  OrderStatus = "WAITING"
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s != OrderStatusWaiting
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusWaiting, OrderStatusAccepted, OrderStatusCanceled, OrderStatusExpired:
		return true
	}
	return false
}

type Order struct {
	ID        int32       `json:"id"`
	UserID    int32       `json:"user_id"`
	GameID    int32       `json:"game_id"`
	Status    OrderStatus `json:"status"`
	RentalID  *int32      `json:"rental_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CheckStatus is the transition guard: only Waiting orders may move.
func (o *Order) CheckStatus() error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %d is already %s: %w", o.ID, o.Status, ErrOrderNotWaiting)
	}
	return nil
}

type OrderFilter struct {
	UserID int32
	Status OrderStatus
}
