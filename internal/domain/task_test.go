package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone}
	for _, status := range valid {
		if !status.Valid() {
			t.Errorf("%q should be valid", status)
		}
	}

	invalid := []TaskStatus{"", "todo", "NOT_STARTED", "archived"}
	for _, status := range invalid {
		if status.Valid() {
			t.Errorf("%q should be invalid", status)
		}
	}
}

func TestTaskPatchEmpty(t *testing.T) {
	if !(&TaskPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}

	title := "x"
	due := time.Now()
	status := TaskStatusDone
	assignee := uuid.New()

	patches := []*TaskPatch{
		{Title: &title},
		{Description: &title},
		{Status: &status},
		{AssignedTo: &assignee},
		{DueDate: &due},
		{ClearDueDate: true},
	}
	for i, patch := range patches {
		if patch.Empty() {
			t.Errorf("patch %d should not be empty", i)
		}
	}
}

func TestRoomHasMember(t *testing.T) {
	member := uuid.New()
	room := &Room{Members: []uuid.UUID{uuid.New(), member}}

	if !room.HasMember(member) {
		t.Error("expected membership")
	}
	if room.HasMember(uuid.New()) {
		t.Error("unexpected membership")
	}
}
