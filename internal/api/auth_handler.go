package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tasktide/tasktide/internal/service"
	"github.com/tasktide/tasktide/internal/service/auth"
	"github.com/tasktide/tasktide/internal/store"
)

// AuthHandler handles registration and authentication API requests.
type AuthHandler struct {
	userService *service.UserService
	resolver    *auth.IdentityResolver
	jwtService  auth.JWTService
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userService *service.UserService,
	resolver *auth.IdentityResolver,
	jwtService auth.JWTService,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		resolver:    resolver,
		jwtService:  jwtService,
		validator:   validator.New(),
	}
}

// Register handles the /register endpoint. Duplicate usernames and emails
// report as 400 alongside other validation failures.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		AvatarURL: req.Avatar,
	})
	if err != nil {
		if store.IsDuplicateError(err) || MapErrorToStatusCode(err) == http.StatusBadRequest {
			RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
			return
		}
		slog.Error("failed to register user", "error", err, "username", req.Username)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to create user")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		DateJoined: user.CreatedAt,
	})
}

// Login handles the /login endpoint. The username field is the identifier
// and may be a username or an email; all login failures are 400 with a
// machine-readable code, keeping bad credentials and inactive accounts
// distinguishable.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.resolver.Resolve(r.Context(), req.Username, req.Password)
	if err != nil {
		if code := ErrorCode(err); code != "" {
			RespondWithErrorCode(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), code)
			return
		}
		slog.Error("failed to resolve identity", "error", err)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to authenticate user")
		return
	}

	accessToken, refreshToken, err := h.tokenPair(r, user.ID)
	if err != nil {
		slog.Error("failed to generate token pair", "error", err, "user_id", user.ID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		ID:           user.ID,
		Username:     user.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(h.jwtService.AccessTokenLifetime()).UTC().Format(time.RFC3339),
	})
}

// RefreshToken handles the /auth/refresh endpoint, rotating a token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredRefreshToken) {
			RespondWithError(w, r, http.StatusUnauthorized, "Refresh token expired")
			return
		}
		RespondWithError(w, r, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	accessToken, refreshToken, err := h.tokenPair(r, claims.UserID)
	if err != nil {
		slog.Error("failed to rotate token pair", "error", err, "user_id", claims.UserID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(h.jwtService.AccessTokenLifetime()).UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) tokenPair(r *http.Request, userID uuid.UUID) (string, string, error) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
