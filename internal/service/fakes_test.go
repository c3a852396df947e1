package service

import (
	"context"
	"sync"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	apperrors "taskroom/pkg/errors"

	"github.com/google/uuid"
)

// The fakes below return copies of stored records, like the real
// repositories building fresh structs per query.

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	byEmail  map[string]uuid.UUID
	sessions map[string]domain.UserSession
	getByIDN int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[uuid.UUID]domain.User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[string]domain.UserSession),
	}
}

func (f *fakeUserRepo) put(user domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	f.byEmail[user.Email] = user.ID
}

func (f *fakeUserRepo) get(id uuid.UUID) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[user.Email]; ok {
		return apperrors.ErrUserAlreadyExists
	}
	f.users[user.ID] = *user
	f.byEmail[user.Email] = user.ID
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByIDN++
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := f.users[id]
	return &user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	updated := *user
	// The SQL UPDATE never touches the password column.
	updated.PasswordHash = stored.PasswordHash
	f.users[user.ID] = updated
	return nil
}

func (f *fakeUserRepo) CreateSession(ctx context.Context, session *domain.UserSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.RefreshTokenHash] = *session
	return nil
}

func (f *fakeUserRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[tokenHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := session
	return &copied, nil
}

func (f *fakeUserRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, session := range f.sessions {
		if session.ID == sessionID {
			delete(f.sessions, hash)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]domain.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uuid.UUID]domain.Room)}
}

func (f *fakeRoomRepo) put(room domain.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = room
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *room
	stored.Members = []uuid.UUID{room.CreatedBy}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.rooms[room.ID] = stored
	room.Members = append([]uuid.UUID(nil), stored.Members...)
	return nil
}

func (f *fakeRoomRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	copied := room
	copied.Members = append([]uuid.UUID(nil), room.Members...)
	return &copied, nil
}

func (f *fakeRoomRepo) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rooms []*domain.Room
	for _, room := range f.rooms {
		if room.HasMember(userID) {
			copied := room
			rooms = append(rooms, &copied)
		}
	}
	return rooms, nil
}

func (f *fakeRoomRepo) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	if !room.HasMember(userID) {
		room.Members = append(room.Members, userID)
		room.UpdatedAt = time.Now()
		f.rooms[roomID] = room
	}
	return nil
}

func (f *fakeRoomRepo) Touch(ctx context.Context, roomID uuid.UUID) error {
	return nil
}

func (f *fakeRoomRepo) members(roomID uuid.UUID) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.rooms[roomID].Members...)
}

type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]domain.Task
	createErr error
	listErr   error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]domain.Task)}
}

func (f *fakeTaskRepo) failCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, roomID, taskID uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.RoomID != roomID {
		return nil, apperrors.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (f *fakeTaskRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	tasks := make([]*domain.Task, 0)
	for _, task := range f.tasks {
		if task.RoomID == roomID {
			copied := task
			tasks = append(tasks, &copied)
		}
	}
	return tasks, nil
}

func (f *fakeTaskRepo) UpdateStatus(ctx context.Context, roomID, taskID uuid.UUID, status domain.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.RoomID != roomID {
		return apperrors.ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now()
	f.tasks[taskID] = task
	return nil
}

func (f *fakeTaskRepo) Patch(ctx context.Context, roomID, taskID uuid.UUID, patch *domain.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.RoomID != roomID {
		return apperrors.ErrTaskNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.AssignedUserName != nil {
		task.AssignedUserName = *patch.AssignedUserName
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	task.UpdatedAt = time.Now()
	f.tasks[taskID] = task
	return nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, roomID, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.RoomID != roomID {
		return apperrors.ErrTaskNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.Timestamp = time.Now()
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := make([]*domain.ChatMessage, 0)
	for _, message := range f.messages {
		if message.RoomID == roomID {
			copied := message
			messages = append(messages, &copied)
		}
	}
	return messages, nil
}

// fakeEventRepo is an in-process change feed. Signals sent to a returned
// subscription's channel drive the subscriber exactly like Redis pub/sub.
type fakeEventRepo struct {
	mu        sync.Mutex
	published []string
	channels  map[string]chan struct{}
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{channels: make(map[string]chan struct{})}
}

func (f *fakeEventRepo) Publish(ctx context.Context, roomID uuid.UUID, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, collection)
	if ch, ok := f.channels[collection]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeEventRepo) Subscribe(ctx context.Context, roomID uuid.UUID, collection string) (*repository.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	f.channels[collection] = ch
	return repository.NewSubscription(ch, nil), nil
}

func (f *fakeEventRepo) publishCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.published {
		if c == collection {
			n++
		}
	}
	return n
}

func (f *fakeEventRepo) signal(collection string) {
	f.mu.Lock()
	ch := f.channels[collection]
	f.mu.Unlock()
	if ch != nil {
		ch <- struct{}{}
	}
}
