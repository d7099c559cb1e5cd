// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/cpcoders/codetrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProfilePatch is a partial profile update. Nil means "leave unchanged".
type ProfilePatch struct {
	Username *string
	Name     *string
}

// UserRepository provides CRUD access for accounts.
type UserRepository interface {
	// Create inserts a new user. ErrAlreadyExists on username/email conflict.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateProfile applies a partial profile update and returns the result.
	UpdateProfile(ctx context.Context, id uuid.UUID, p ProfilePatch) (*model.User, error)
}
