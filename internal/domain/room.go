package domain

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  *string     `json:"description,omitempty"`
	PasswordHash string      `json:"-"`
	CreatedBy    uuid.UUID   `json:"created_by"`
	Members      []uuid.UUID `json:"members"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasMember reports whether the user is in the room's member list.
func (r *Room) HasMember(userID uuid.UUID) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Member is a resolved roster entry: a room member with their current profile.
type Member struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image,omitempty"`
}
