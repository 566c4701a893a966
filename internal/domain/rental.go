package domain

import (
	"regexp"
	"time"
)

// borrowerIndexPattern accepts a six-digit student code, an "SD" staff code,
// or a phone number of 7-15 digits with an optional leading '+'.
var borrowerIndexPattern = regexp.MustCompile(`^(?:\d{6}|SD\d{4}|\+?[0-9]{7,15})$`)

// ValidateBorrowerIndex returns ErrInvalidBorrowerIndex when index does not match the borrower pattern.
func ValidateBorrowerIndex(index string) error {
	if !borrowerIndexPattern.MatchString(index) {
		return ErrInvalidBorrowerIndex
	}
	return nil
}

type Rental struct {
	ID         int32      `json:"id"`
	Index      string     `json:"index"`
	GameID     int32      `json:"game_id"`
	RentedBy   int32      `json:"rented_by"`
	OrderID    *int32     `json:"order_id,omitempty"`
	RentedAt   time.Time  `json:"rented_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Active reports whether the copy is still out.
func (r *Rental) Active() bool {
	return r.ReturnedAt == nil
}

// RentalFilter narrows rental listings. Zero values mean "any".
type RentalFilter struct {
	GameID     int32
	ActiveOnly bool
}
