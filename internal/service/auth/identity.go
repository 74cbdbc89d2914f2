package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/store"
)

// IdentityResolver resolves a login identifier (username or email) to
// exactly one account and verifies its credentials.
type IdentityResolver struct {
	users    store.UserStore
	verifier PasswordVerifier
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewIdentityResolver creates a resolver over the given user store and
// password verifier.
func NewIdentityResolver(
	users store.UserStore,
	verifier PasswordVerifier,
	logger *slog.Logger,
) *IdentityResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityResolver{
		users:    users,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "identity_resolver")),
		timeFunc: time.Now,
	}
}

// Resolve looks up the account for identifier and verifies password.
//
// An identifier with the local-part@domain.tld shape is tried as an email
// first; on a miss the same string is tried as a username, so a value that
// merely looks like an email can still name an account whose username
// contains an @. Lookup order failures collapse to ErrInvalidCredentials;
// a deactivated account is reported separately as ErrInactiveAccount, and a
// lookup matching several accounts as ErrAmbiguousIdentity.
//
// On success the account's last-login timestamp is stamped.
func (r *IdentityResolver) Resolve(ctx context.Context, identifier, password string) (*domain.User, error) {
	user, err := r.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := r.verifier.Compare(user.HashedPassword, password); err != nil {
		r.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	now := r.timeFunc().UTC()
	if err := r.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// The login itself succeeded; a missing stamp is not worth failing it.
		r.logger.Error("failed to update last login", "error", err, "user_id", user.ID)
	} else {
		user.LastLoginAt = &now
	}

	return user, nil
}

// lookup performs the two-stage email-then-username resolution.
func (r *IdentityResolver) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if domain.LooksLikeEmail(identifier) {
		user, err := r.users.GetByEmail(ctx, identifier)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, store.ErrAmbiguous):
			return nil, ErrAmbiguousIdentity
		case errors.Is(err, store.ErrUserNotFound):
			// Fall through to the username lookup of the same string.
		default:
			return nil, fmt.Errorf("email lookup failed: %w", err)
		}
	}

	user, err := r.users.GetByUsername(ctx, identifier)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, store.ErrAmbiguous):
		return nil, ErrAmbiguousIdentity
	case errors.Is(err, store.ErrUserNotFound):
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("username lookup failed: %w", err)
	}
}
