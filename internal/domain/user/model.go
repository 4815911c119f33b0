package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/dateonly"
)

// User maps to the users table. The password hash never serializes.
type User struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	DOB            *dateonly.Date `db:"dob" json:"dob,omitempty"`
	HashedPassword string         `db:"hashed_password" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	DOB      *dateonly.Date `json:"dob,omitempty"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest carries optional profile changes; nil fields are untouched.
type UpdateRequest struct {
	Name  *string        `json:"name,omitempty"`
	Email *string        `json:"email,omitempty"`
	DOB   *dateonly.Date `json:"dob,omitempty"`
}

// PasswordChangeRequest requires the current password before setting a new one.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Profile is the transport shape for the authenticated user.
type Profile struct {
	ID    uuid.UUID      `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	DOB   *dateonly.Date `json:"dob,omitempty"`
}

// ToProfile converts a User into its transport shape.
func (u *User) ToProfile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, DOB: u.DOB}
}
