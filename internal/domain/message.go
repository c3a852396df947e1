package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender is the identity snapshot embedded in a message at send time.
// Reads overlay the sender's current profile on top of it.
type Sender struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image,omitempty"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}
