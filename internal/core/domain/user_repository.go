package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEmail is returned by UserRepository.Insert when the email is
// already taken. The uniqueness check happens inside the insert itself, so
// concurrent registrations for one address yield exactly one success.
var ErrDuplicateEmail = errors.New("duplicate email")

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRepository defines the data-access contract for user accounts.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or pgx directly.
type UserRepository interface {
	// Insert creates a user and returns it with its generated ID.
	// Returns ErrDuplicateEmail when the email already exists.
	Insert(ctx context.Context, email, name, passwordHash string) (*User, error)

	// FindByEmail returns the user with the given (lowercased) email.
	// Returns (nil, nil) when no user is found.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user with the given ID.
	// Returns (nil, nil) when no user is found.
	FindByID(ctx context.Context, id int) (*User, error)

	// UpdatePassword replaces the stored password hash for the user.
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}
