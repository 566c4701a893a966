package security

import (
	"fmt"

	"boardgame-rental-backend/internal/domain"
)

// Capability names a class of mutation guarded by role.
type Capability string

const (
	ManageGames   Capability = "manage_games"
	ManageRentals Capability = "manage_rentals"
	ManageOrders  Capability = "manage_orders"
	PlaceOrders   Capability = "place_orders"
	ManageUsers   Capability = "manage_users"
	ViewAll       Capability = "view_all"
)

var grants = map[domain.Role]map[Capability]bool{
	domain.RoleAdmin: {
		ManageGames:   true,
		ManageRentals: true,
		ManageOrders:  true,
		PlaceOrders:   true,
		ManageUsers:   true,
		ViewAll:       true,
	},
	domain.RoleRentalStaff: {
		ManageRentals: true,
		ManageOrders:  true,
		PlaceOrders:   true,
		ViewAll:       true,
	},
	domain.RoleUser: {
		PlaceOrders: true,
	},
}

// Allowed reports whether role holds capability.
func Allowed(role domain.Role, capability Capability) bool {
	return grants[role][capability]
}

// Require is the single gate every mutating entry point passes through.
func Require(caller domain.Caller, capability Capability) error {
	if caller.UserID == 0 || caller.Role == "" {
		return domain.ErrUnauthorized
	}
	if !Allowed(caller.Role, capability) {
		return fmt.Errorf("%s cannot %s: %w", caller.Role, capability, domain.ErrForbidden)
	}
	return nil
}

// RequireSelfOr passes when the caller acts on their own behalf or holds capability.
func RequireSelfOr(caller domain.Caller, ownerID int32, capability Capability) error {
	if caller.UserID == 0 || caller.Role == "" {
		return domain.ErrUnauthorized
	}
	if caller.UserID == ownerID {
		return nil
	}
	return Require(caller, capability)
}
