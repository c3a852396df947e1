package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskroom/internal/domain"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, roomID, taskID uuid.UUID) (*domain.Task, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Task, error)
	UpdateStatus(ctx context.Context, roomID, taskID uuid.UUID, status domain.TaskStatus) error
	Patch(ctx context.Context, roomID, taskID uuid.UUID, patch *domain.TaskPatch) error
	Delete(ctx context.Context, roomID, taskID uuid.UUID) error
}

type taskRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewTaskRepository(db *pgxpool.Pool, log logger.Logger) TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, room_id, title, description, status, assigned_to, assigned_user_name, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		task.ID, task.RoomID, task.Title, task.Description, task.Status,
		task.AssignedTo, task.AssignedUserName, task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create task", "error", err, "room_id", task.RoomID)
		return err
	}

	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, roomID, taskID uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, room_id, title, description, status, assigned_to, assigned_user_name, due_date, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND room_id = $2
	`

	task := &domain.Task{}
	err := r.db.QueryRow(ctx, query, taskID, roomID).Scan(
		&task.ID, &task.RoomID, &task.Title, &task.Description, &task.Status,
		&task.AssignedTo, &task.AssignedUserName, &task.DueDate,
		&task.CreatedAt, &task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		r.log.Error("Failed to get task", "error", err)
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, room_id, title, description, status, assigned_to, assigned_user_name, due_date, created_at, updated_at
		FROM tasks
		WHERE room_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to list tasks", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task := &domain.Task{}
		err := rows.Scan(
			&task.ID, &task.RoomID, &task.Title, &task.Description, &task.Status,
			&task.AssignedTo, &task.AssignedUserName, &task.DueDate,
			&task.CreatedAt, &task.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan task", "error", err)
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, roomID, taskID uuid.UUID, status domain.TaskStatus) error {
	query := `
		UPDATE tasks
		SET status = $3, updated_at = now()
		WHERE id = $1 AND room_id = $2
	`

	tag, err := r.db.Exec(ctx, query, taskID, roomID, status)
	if err != nil {
		r.log.Error("Failed to update task status", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}

	return nil
}

// Patch applies only the fields set on the patch. A nil field keeps the
// stored value; ClearDueDate sets due_date to NULL.
func (r *taskRepository) Patch(ctx context.Context, roomID, taskID uuid.UUID, patch *domain.TaskPatch) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{taskID, roomID}
	arg := 3

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.Status != nil {
		addSet("status", *patch.Status)
	}
	if patch.AssignedTo != nil {
		addSet("assigned_to", *patch.AssignedTo)
	}
	if patch.AssignedUserName != nil {
		addSet("assigned_user_name", *patch.AssignedUserName)
	}
	if patch.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if patch.DueDate != nil {
		addSet("due_date", *patch.DueDate)
	}

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $1 AND room_id = $2`,
		strings.Join(sets, ", "),
	)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to patch task", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, roomID, taskID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND room_id = $2`, taskID, roomID)
	if err != nil {
		r.log.Error("Failed to delete task", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}
