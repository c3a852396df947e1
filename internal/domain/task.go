package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID               uuid.UUID  `json:"id"`
	RoomID           uuid.UUID  `json:"room_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           TaskStatus `json:"status"`
	AssignedTo       uuid.UUID  `json:"assigned_to"`
	AssignedUserName string     `json:"assigned_user_name"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TaskDraft carries the caller-supplied fields of a new task. Timestamps
// are assigned by the store.
type TaskDraft struct {
	Title       string
	Description string
	Status      TaskStatus
	AssignedTo  uuid.UUID
	DueDate     *time.Time
}

// TaskPatch is a partial update. A nil field leaves the stored value
// untouched; ClearDueDate removes the due date regardless of DueDate.
type TaskPatch struct {
	Title            *string
	Description      *string
	Status           *TaskStatus
	AssignedTo       *uuid.UUID
	AssignedUserName *string
	DueDate          *time.Time
	ClearDueDate     bool
}

// Empty reports whether the patch changes nothing.
func (p *TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.AssignedTo == nil && p.AssignedUserName == nil &&
		p.DueDate == nil && !p.ClearDueDate
}
