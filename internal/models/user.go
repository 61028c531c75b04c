package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a platform user
type Role string

const (
	RoleFan     Role = "fan"
	RoleCreator Role = "creator"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	return r == RoleFan || r == RoleCreator
}

// User represents an identity record. Everything the rest of the system
// cares about lives on the Profile; the User row only carries credentials.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
