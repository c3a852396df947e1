package service

import (
	"context"
	"errors"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
)

type TaskService interface {
	List(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.Task, error)
	Add(ctx context.Context, roomID, userID uuid.UUID, draft *domain.TaskDraft) (*domain.Task, error)
	UpdateStatus(ctx context.Context, roomID, userID, taskID uuid.UUID, status domain.TaskStatus) error
	Edit(ctx context.Context, roomID, userID, taskID uuid.UUID, patch *domain.TaskPatch) error
	Delete(ctx context.Context, roomID, userID, taskID uuid.UUID) error
}

type taskService struct {
	taskRepo repository.TaskRepository
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	events   repository.EventRepository
	log      logger.Logger
}

func NewTaskService(taskRepo repository.TaskRepository, roomRepo repository.RoomRepository, userRepo repository.UserRepository, events repository.EventRepository, log logger.Logger) TaskService {
	return &taskService{
		taskRepo: taskRepo,
		roomRepo: roomRepo,
		userRepo: userRepo,
		events:   events,
		log:      log,
	}
}

func (s *taskService) requireMember(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasMember(userID) {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *taskService) List(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.Task, error) {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByRoom(ctx, roomID)
}

// Add writes a new task with store-assigned timestamps. The assignee
// display name is denormalized onto the task at creation and not updated
// when the assignee later renames their profile.
func (s *taskService) Add(ctx context.Context, roomID, userID uuid.UUID, draft *domain.TaskDraft) (*domain.Task, error) {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	if draft.Title == "" {
		return nil, errors.New("task title is required")
	}
	status := draft.Status
	if status == "" {
		status = domain.TaskStatusNotStarted
	}
	if !status.Valid() {
		return nil, errors.New("invalid task status")
	}

	assignedName := domain.DefaultDisplayName
	if assignee, err := s.userRepo.GetByID(ctx, draft.AssignedTo); err == nil && assignee.DisplayName != "" {
		assignedName = assignee.DisplayName
	}

	task := &domain.Task{
		ID:               uuid.New(),
		RoomID:           roomID,
		Title:            draft.Title,
		Description:      draft.Description,
		Status:           status,
		AssignedTo:       draft.AssignedTo,
		AssignedUserName: assignedName,
		DueDate:          draft.DueDate,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.publish(ctx, roomID)
	return task, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, roomID, userID, taskID uuid.UUID, status domain.TaskStatus) error {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return err
	}
	if !status.Valid() {
		return errors.New("invalid task status")
	}

	if err := s.taskRepo.UpdateStatus(ctx, roomID, taskID, status); err != nil {
		return err
	}

	s.publish(ctx, roomID)
	return nil
}

func (s *taskService) Edit(ctx context.Context, roomID, userID, taskID uuid.UUID, patch *domain.TaskPatch) error {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return err
	}
	if patch.Empty() {
		return errors.New("empty task patch")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return errors.New("invalid task status")
	}

	// Re-denormalize the assignee name when the assignee changes.
	if patch.AssignedTo != nil && patch.AssignedUserName == nil {
		assignedName := domain.DefaultDisplayName
		if assignee, err := s.userRepo.GetByID(ctx, *patch.AssignedTo); err == nil && assignee.DisplayName != "" {
			assignedName = assignee.DisplayName
		}
		patch.AssignedUserName = &assignedName
	}

	if err := s.taskRepo.Patch(ctx, roomID, taskID, patch); err != nil {
		return err
	}

	s.publish(ctx, roomID)
	return nil
}

func (s *taskService) Delete(ctx context.Context, roomID, userID, taskID uuid.UUID) error {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, roomID, taskID); err != nil {
		return err
	}

	s.publish(ctx, roomID)
	return nil
}

func (s *taskService) publish(ctx context.Context, roomID uuid.UUID) {
	if err := s.events.Publish(ctx, roomID, repository.CollectionTasks); err != nil {
		s.log.Warn("Failed to publish task change", "error", err, "room_id", roomID)
	}
}

// FilterTasksByStatus is a pure partition over an in-memory snapshot.
func FilterTasksByStatus(tasks []*domain.Task, status domain.TaskStatus) []*domain.Task {
	filtered := make([]*domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			filtered = append(filtered, task)
		}
	}
	return filtered
}
