package domain

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleRepresentative Role = "Representative"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRepresentative
}

// ParseRole accepts the role code in any letter case.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, nil
	case strings.EqualFold(s, string(RoleRepresentative)):
		return RoleRepresentative, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// User is an account allowed to sign in. PasswordHash is persisted by the
// store but must never leave the process; use Public before returning it.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) Key() string { return u.ID }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Public returns a copy without credentials.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// CountAdmins returns how many users hold the Admin role.
func CountAdmins(users []User) int {
	n := 0
	for _, u := range users {
		if u.IsAdmin() {
			n++
		}
	}
	return n
}
