package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity anchor of the system. Users are created together
// with their wallet on first verified external identity and are immutable
// afterwards except for profile fields.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	ExternalID *string   `json:"external_id,omitempty"` // verified external identity, unique
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Picture    string    `json:"picture,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the user's full name for recipient lookups.
func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
