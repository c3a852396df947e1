package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
)

type syncFixture struct {
	svc         SyncService
	taskRepo    *fakeTaskRepo
	messageRepo *fakeMessageRepo
	roomRepo    *fakeRoomRepo
	userRepo    *fakeUserRepo
	events      *fakeEventRepo
	roomID      uuid.UUID
	member      uuid.UUID
}

func newSyncFixture() *syncFixture {
	taskRepo := newFakeTaskRepo()
	messageRepo := newFakeMessageRepo()
	roomRepo := newFakeRoomRepo()
	userRepo := newFakeUserRepo()
	events := newFakeEventRepo()
	log := logger.NewNop()

	member := uuid.New()
	roomID := uuid.New()
	roomRepo.put(domain.Room{ID: roomID, Name: "Board", Members: []uuid.UUID{member}})
	userRepo.put(domain.User{ID: member, Email: "m@example.com", DisplayName: "Mika"})

	taskSvc := NewTaskService(taskRepo, roomRepo, userRepo, events, log)
	chatSvc := NewChatService(messageRepo, roomRepo, userRepo, events, log)

	return &syncFixture{
		svc:         NewSyncService(roomRepo, taskRepo, messageRepo, events, taskSvc, chatSvc, time.Second, log),
		taskRepo:    taskRepo,
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		events:      events,
		roomID:      roomID,
		member:      member,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestOpenRoomForbiddenForNonMember(t *testing.T) {
	f := newSyncFixture()

	if _, err := f.svc.OpenRoom(context.Background(), f.roomID, uuid.New()); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestOpenRoomNotFound(t *testing.T) {
	f := newSyncFixture()

	if _, err := f.svc.OpenRoom(context.Background(), uuid.New(), f.member); !errors.Is(err, apperrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSessionLoadsInitialSnapshots(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	defer session.Close()

	if session.Room() == nil || session.Room().ID != f.roomID {
		t.Error("room metadata missing after open")
	}
	waitFor(t, "initial load", func() bool {
		loading := session.Loading()
		return !loading.Tasks && !loading.Messages
	})
}

func TestSessionMutationsAndSnapshotReplace(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	defer session.Close()

	task := session.AddTask(context.Background(), &domain.TaskDraft{
		Title:      "Wire the board",
		AssignedTo: f.member,
	})
	if task == nil {
		t.Fatalf("AddTask failed: %s", session.LastError())
	}
	waitFor(t, "task snapshot", func() bool {
		return len(session.Tasks()) == 1
	})

	if !session.UpdateTaskStatus(context.Background(), task.ID, domain.TaskStatusDone) {
		t.Fatalf("UpdateTaskStatus failed: %s", session.LastError())
	}
	waitFor(t, "status change in snapshot", func() bool {
		done := session.GetTasksByStatus(domain.TaskStatusDone)
		return len(done) == 1 && done[0].ID == task.ID
	})

	message := session.SendMessage(context.Background(), "done!")
	if message == nil {
		t.Fatalf("SendMessage failed: %s", session.LastError())
	}
	waitFor(t, "message snapshot", func() bool {
		messages := session.Messages()
		return len(messages) == 1 && messages[0].Content == "done!"
	})

	if !session.DeleteTask(context.Background(), task.ID) {
		t.Fatalf("DeleteTask failed: %s", session.LastError())
	}
	waitFor(t, "task removal", func() bool {
		return len(session.Tasks()) == 0
	})
}

func TestSessionMutationErrorRecordedNotThrown(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	defer session.Close()

	seeded := session.AddTask(context.Background(), &domain.TaskDraft{
		Title:      "Survivor",
		AssignedTo: f.member,
	})
	if seeded == nil {
		t.Fatalf("AddTask failed: %s", session.LastError())
	}
	waitFor(t, "seed snapshot", func() bool {
		return len(session.Tasks()) == 1
	})

	f.taskRepo.failCreate(errors.New("store down"))
	if task := session.AddTask(context.Background(), &domain.TaskDraft{Title: "Doomed", AssignedTo: f.member}); task != nil {
		t.Error("failed AddTask must return nil")
	}
	if session.LastError() == "" {
		t.Error("mutation failure must land in the error slot")
	}
	if len(session.Tasks()) != 1 {
		t.Error("prior snapshot must survive a failed mutation")
	}
}

func TestSessionEnrichesMessageSenders(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	defer session.Close()

	if session.SendMessage(context.Background(), "first") == nil {
		t.Fatalf("SendMessage failed: %s", session.LastError())
	}
	waitFor(t, "first snapshot", func() bool {
		return len(session.Messages()) == 1
	})

	renamed := f.userRepo.get(f.member)
	renamed.DisplayName = "Mika Renamed"
	f.userRepo.put(renamed)

	// The rename shows up on the push triggered by the next change signal.
	f.events.signal(repository.CollectionMessages)
	waitFor(t, "rename in snapshot", func() bool {
		messages := session.Messages()
		return len(messages) == 1 && messages[0].Sender.Name == "Mika Renamed"
	})
}

func TestSessionListenerReceivesPushes(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	defer session.Close()

	events, unlisten := session.Listen()
	defer unlisten()

	if session.AddTask(context.Background(), &domain.TaskDraft{Title: "Ping", AssignedTo: f.member}) == nil {
		t.Fatalf("AddTask failed: %s", session.LastError())
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == repository.CollectionTasks && len(event.Tasks) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no task push received")
		}
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	f := newSyncFixture()

	session, err := f.svc.OpenRoom(context.Background(), f.roomID, f.member)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}

	events, _ := session.Listen()
	session.Close()
	session.Close()

	if _, ok := <-events; ok {
		// Drain until closed; a closed channel reports ok=false.
		for range events {
		}
	}
}
