package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/service/auth"
	"github.com/tasktide/tasktide/internal/store"
)

// RegisterParams carries the fields needed to create an account.
type RegisterParams struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	AvatarURL string
}

// UserService implements account registration. Every new account gets a
// profile provisioned in the same transaction; the provisioning is an
// explicit step of Register so the dependency is visible in the contract.
type UserService struct {
	db       *sql.DB
	users    store.UserStore
	profiles store.ProfileStore
	hasher   auth.PasswordHasher
	logger   *slog.Logger
}

// NewUserService creates a UserService with the given dependencies.
func NewUserService(
	db *sql.DB,
	users store.UserStore,
	profiles store.ProfileStore,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		db:       db,
		users:    users,
		profiles: profiles,
		hasher:   hasher,
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// Register creates the account and its profile atomically. Returns domain
// validation errors for bad input and store duplicate errors when the
// username or email is taken.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	user, err := domain.NewUser(
		params.Username,
		params.Email,
		params.FirstName,
		params.LastName,
		params.Password,
	)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	profile, err := domain.NewProfile(user.ID, params.AvatarURL)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.profiles.WithTx(tx).Create(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered user",
		"user_id", user.ID,
		"username", user.Username)

	return user, nil
}
