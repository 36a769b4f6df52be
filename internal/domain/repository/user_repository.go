package repository

import (
	"context"
	"errors"

	"zonewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrProfileNotFound is returned when a user has no profile row.
	ErrProfileNotFound = errors.New("user profile not found")
)

// UserRepository defines the standard operations for user persistence.
// The application layer depends on this interface, not the concrete implementation.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies an existing user entity in the storage.
	Update(ctx context.Context, user *entity.User) error

	// FindProfile retrieves the profile attached to a user.
	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.UserProfile, error)

	// CreateProfile persists a new profile for a user.
	CreateProfile(ctx context.Context, profile *entity.UserProfile) error

	// UpdateProfile modifies an existing profile, including token rotation.
	UpdateProfile(ctx context.Context, profile *entity.UserProfile) error
}
