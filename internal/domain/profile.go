package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Profile validation errors.
var (
	ErrProfileIDEmpty     = errors.New("profile ID cannot be empty")
	ErrProfileUserIDEmpty = errors.New("profile user ID cannot be empty")
)

// Profile holds the per-account presentation data that is provisioned
// alongside every new account. AvatarURL may be empty; image processing is
// handled outside this service.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile creates a profile for the given user.
func NewProfile(userID uuid.UUID, avatarURL string) (*Profile, error) {
	profile := &Profile{
		ID:        uuid.New(),
		UserID:    userID,
		AvatarURL: avatarURL,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return profile, nil
}

// Validate checks if the Profile has valid data.
func (p *Profile) Validate() error {
	if p.ID == uuid.Nil {
		return ErrProfileIDEmpty
	}

	if p.UserID == uuid.Nil {
		return ErrProfileUserIDEmpty
	}

	return nil
}
