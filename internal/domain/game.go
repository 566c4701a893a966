package domain

import (
	"strings"
	"time"
)

type Game struct {
	ID          int32     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Amount      int32     `json:"amount"`   // copies owned
	Quantity    int32     `json:"quantity"` // copies on the shelf
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// CanAdjust reports whether quantity+delta stays within [0, amount].
func (g *Game) CanAdjust(delta int32) bool {
	next := g.Quantity + delta
	return next >= 0 && next <= g.Amount
}

// Validate checks the stock bounds and required fields of a game.
func (g *Game) Validate() error {
	if g.Title == "" {
		return InvalidInput("title is required")
	}
	if g.Amount < 1 {
		return InvalidInput("amount must be at least 1")
	}
	if g.Quantity < 0 || g.Quantity > g.Amount {
		return ErrInvalidQuantity
	}
	return nil
}

// GamePatch carries an administrative edit. Nil fields are left untouched.
type GamePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	Amount      *int32  `json:"amount,omitempty"`
	Quantity    *int32  `json:"quantity,omitempty"`
}

// Apply writes the non-nil fields of p onto g.
func (p GamePatch) Apply(g *Game) {
	if p.Title != nil {
		g.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.ImageURL != nil {
		g.ImageURL = *p.ImageURL
	}
	if p.Amount != nil {
		g.Amount = *p.Amount
	}
	if p.Quantity != nil {
		g.Quantity = *p.Quantity
	}
}

// StockReport is the reconciliation view of one game.
type StockReport struct {
	GameID        int32 `json:"game_id"`
	Amount        int32 `json:"amount"`
	Quantity      int32 `json:"quantity"`
	ActiveRentals int32 `json:"active_rentals"`
	Consistent    bool  `json:"consistent"`
}

// GameSpec is the input for cataloguing a game. Quantity defaults to Amount.
type GameSpec struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	Amount      int32  `json:"amount"`
	Quantity    *int32 `json:"quantity,omitempty"`
}

func (s GameSpec) Game() *Game {
	quantity := s.Amount
	if s.Quantity != nil {
		quantity = *s.Quantity
	}
	return &Game{
		Title:       strings.TrimSpace(s.Title),
		Description: s.Description,
		Category:    s.Category,
		ImageURL:    s.ImageURL,
		Amount:      s.Amount,
		Quantity:    quantity,
	}
}
