package service

import (
	"context"
	"sync"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
)

// SyncService opens live room sessions. A session bridges the room's task
// and message collections to in-memory snapshots and exposes the mutation
// surface for one member.
type SyncService interface {
	OpenRoom(ctx context.Context, roomID, userID uuid.UUID) (*RoomSession, error)
}

type syncService struct {
	roomRepo    repository.RoomRepository
	taskRepo    repository.TaskRepository
	messageRepo repository.MessageRepository
	events      repository.EventRepository
	taskSvc     TaskService
	chatSvc     ChatService
	callTimeout time.Duration
	log         logger.Logger
}

func NewSyncService(
	roomRepo repository.RoomRepository,
	taskRepo repository.TaskRepository,
	messageRepo repository.MessageRepository,
	events repository.EventRepository,
	taskSvc TaskService,
	chatSvc ChatService,
	callTimeout time.Duration,
	log logger.Logger,
) SyncService {
	return &syncService{
		roomRepo:    roomRepo,
		taskRepo:    taskRepo,
		messageRepo: messageRepo,
		events:      events,
		taskSvc:     taskSvc,
		chatSvc:     chatSvc,
		callTimeout: callTimeout,
		log:         log,
	}
}

// LoadingState tracks readiness per resource. The two subscriptions run
// independently and may become ready in any order.
type LoadingState struct {
	Room     bool `json:"room"`
	Tasks    bool `json:"tasks"`
	Messages bool `json:"messages"`
}

// SnapshotEvent is one push from a room session to its listeners. Type is
// "room", "tasks", "messages" or "error"; only the matching field is set.
type SnapshotEvent struct {
	Type     string                `json:"type"`
	Room     *domain.Room          `json:"room,omitempty"`
	Tasks    []*domain.Task        `json:"tasks,omitempty"`
	Messages []*domain.ChatMessage `json:"messages,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// RoomSession owns the live state of one room for one member. All reads
// come from the in-memory snapshots, which are fully replaced on every
// change-feed signal. Close must be called when the consumer goes away.
type RoomSession struct {
	roomID uuid.UUID
	userID uuid.UUID

	svc *syncService

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu        sync.RWMutex
	room      *domain.Room
	tasks     []*domain.Task
	messages  []*domain.ChatMessage
	loading   LoadingState
	lastError string

	listenerMu sync.Mutex
	listeners  map[int]chan SnapshotEvent
	nextID     int
}

// OpenRoom fetches the room once, enforces the membership invariant, and
// only then starts the two collection subscriptions.
func (s *syncService) OpenRoom(ctx context.Context, roomID, userID uuid.UUID) (*RoomSession, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	room, err := s.roomRepo.GetByID(fetchCtx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, apperrors.ErrForbidden
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	session := &RoomSession{
		roomID: roomID,
		userID: userID,
		svc:    s,
		cancel: sessCancel,
		room:   room,
		loading: LoadingState{
			Tasks:    true,
			Messages: true,
		},
		listeners: make(map[int]chan SnapshotEvent),
	}

	session.wg.Add(2)
	go session.runCollection(sessCtx, repository.CollectionTasks, session.reloadTasks)
	go session.runCollection(sessCtx, repository.CollectionMessages, session.reloadMessages)

	return session, nil
}

// Close tears down both subscriptions and all listeners. Safe to call more
// than once; only the first call does anything.
func (s *RoomSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		s.listenerMu.Lock()
		for id, ch := range s.listeners {
			close(ch)
			delete(s.listeners, id)
		}
		s.listenerMu.Unlock()
	})
}

func (s *RoomSession) runCollection(ctx context.Context, collection string, reload func(ctx context.Context)) {
	defer s.wg.Done()

	sub, err := s.svc.events.Subscribe(ctx, s.roomID, collection)
	if err != nil {
		s.recordError("failed to subscribe to "+collection, err)
		s.markLoaded(collection)
		return
	}
	defer sub.Close()

	// The change feed carries no data, so the initial state and every
	// update use the same path: re-read the full collection.
	reload(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			reload(ctx)
		}
	}
}

func (s *RoomSession) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.svc.callTimeout)
}

// reloadTasks replaces the whole task snapshot. Snapshot sizes are small,
// so full replace beats incremental patching.
func (s *RoomSession) reloadTasks(ctx context.Context) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	tasks, err := s.svc.taskRepo.ListByRoom(callCtx, s.roomID)
	if err != nil {
		s.recordError("failed to load tasks", err)
		s.markLoaded(repository.CollectionTasks)
		return
	}

	s.mu.Lock()
	s.tasks = tasks
	s.loading.Tasks = false
	s.mu.Unlock()

	s.notify(SnapshotEvent{Type: repository.CollectionTasks, Tasks: tasks})
}

// reloadMessages replaces the message snapshot after overlaying current
// sender profiles onto the stored snapshots.
func (s *RoomSession) reloadMessages(ctx context.Context) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	messages, err := s.svc.messageRepo.ListByRoom(callCtx, s.roomID)
	if err != nil {
		s.recordError("failed to load messages", err)
		s.markLoaded(repository.CollectionMessages)
		return
	}

	s.svc.chatSvc.EnrichSenders(callCtx, messages)

	s.mu.Lock()
	s.messages = messages
	s.loading.Messages = false
	s.mu.Unlock()

	s.notify(SnapshotEvent{Type: repository.CollectionMessages, Messages: messages})
}

func (s *RoomSession) markLoaded(collection string) {
	s.mu.Lock()
	switch collection {
	case repository.CollectionTasks:
		s.loading.Tasks = false
	case repository.CollectionMessages:
		s.loading.Messages = false
	}
	s.mu.Unlock()
}

// recordError fills the error slot without disturbing the current
// snapshots; the previous state stays visible.
func (s *RoomSession) recordError(msg string, err error) {
	s.svc.log.Error(msg, "error", err, "room_id", s.roomID, "user_id", s.userID)

	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()

	s.notify(SnapshotEvent{Type: "error", Error: msg})
}

// Listen registers a snapshot listener. The returned func unregisters it;
// the channel is closed either by that func or by Close.
func (s *RoomSession) Listen() (<-chan SnapshotEvent, func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan SnapshotEvent, 16)
	s.listeners[id] = ch
	s.listenerMu.Unlock()

	return ch, func() {
		s.listenerMu.Lock()
		if c, ok := s.listeners[id]; ok {
			close(c)
			delete(s.listeners, id)
		}
		s.listenerMu.Unlock()
	}
}

func (s *RoomSession) notify(event SnapshotEvent) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for _, ch := range s.listeners {
		// A listener that cannot keep up misses an event; the next
		// full snapshot makes it whole.
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *RoomSession) Room() *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

func (s *RoomSession) Tasks() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks
}

func (s *RoomSession) Messages() []*domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages
}

func (s *RoomSession) Loading() LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the most recent recorded mutation or reload error,
// empty when none has occurred.
func (s *RoomSession) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// GetTasksByStatus filters the in-memory snapshot; it performs no I/O.
func (s *RoomSession) GetTasksByStatus(status domain.TaskStatus) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterTasksByStatus(s.tasks, status)
}

// AddTask returns the created task, or nil after recording the error.
func (s *RoomSession) AddTask(ctx context.Context, draft *domain.TaskDraft) *domain.Task {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	task, err := s.svc.taskSvc.Add(callCtx, s.roomID, s.userID, draft)
	if err != nil {
		s.recordError("failed to add task", err)
		return nil
	}
	return task
}

func (s *RoomSession) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) bool {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	if err := s.svc.taskSvc.UpdateStatus(callCtx, s.roomID, s.userID, taskID, status); err != nil {
		s.recordError("failed to update task status", err)
		return false
	}
	return true
}

func (s *RoomSession) EditTask(ctx context.Context, taskID uuid.UUID, patch *domain.TaskPatch) bool {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	if err := s.svc.taskSvc.Edit(callCtx, s.roomID, s.userID, taskID, patch); err != nil {
		s.recordError("failed to edit task", err)
		return false
	}
	return true
}

func (s *RoomSession) DeleteTask(ctx context.Context, taskID uuid.UUID) bool {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	if err := s.svc.taskSvc.Delete(callCtx, s.roomID, s.userID, taskID); err != nil {
		s.recordError("failed to delete task", err)
		return false
	}
	return true
}

// SendMessage returns the created message, or nil after recording the
// error.
func (s *RoomSession) SendMessage(ctx context.Context, content string) *domain.ChatMessage {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	message, err := s.svc.chatSvc.SendMessage(callCtx, s.roomID, s.userID, content)
	if err != nil {
		s.recordError("failed to send message", err)
		return nil
	}
	return message
}
