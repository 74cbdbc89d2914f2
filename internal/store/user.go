package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasktide/tasktide/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The user must carry a hashed
	// password; plaintext passwords never reach the store.
	// Returns ErrEmailExists or ErrUsernameExists on uniqueness violations.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if no user matches and ErrAmbiguous if more
	// than one does.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	// Returns ErrUserNotFound if no user matches and ErrAmbiguous if more
	// than one does.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateLastLogin stamps the user's last successful login time.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithTx returns a new UserStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) UserStore
}

// ProfileStore defines the interface for profile data persistence.
type ProfileStore interface {
	// Create saves a new profile to the store.
	Create(ctx context.Context, profile *domain.Profile) error

	// GetByUserID retrieves the profile belonging to a user.
	// Returns ErrProfileNotFound if it does not exist.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)

	// WithTx returns a new ProfileStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ProfileStore
}
