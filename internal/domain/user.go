package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleRentalStaff Role = "RENTAL_STAFF"
	RoleUser        Role = "USER"
)

// ParseRole maps a free-form role name onto the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleRentalStaff:
		return RoleRentalStaff, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", InvalidInput("unknown role %q", s)
}

type User struct {
	ID            int32     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	BorrowerIndex string    `json:"borrower_index"`
	Role          Role      `json:"role"`
	PasswordHash  string    `json:"-"`
	CreatedOn     time.Time `json:"created_on"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID int32
	Role   Role
}
