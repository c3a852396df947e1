package repository

import (
	"context"
	"errors"

	"taskroom/internal/domain"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
	Touch(ctx context.Context, roomID uuid.UUID) error
}

type roomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

// Create inserts the room and its creator as the sole member in one
// transaction.
func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO rooms (id, name, description, password_hash, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		room.ID, room.Name, room.Description, room.PasswordHash, room.CreatedBy,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create room", "error", err)
		return err
	}

	memberQuery := `
		INSERT INTO room_members (room_id, user_id, joined_at)
		VALUES ($1, $2, now())
	`
	if _, err := tx.Exec(ctx, memberQuery, room.ID, room.CreatedBy); err != nil {
		r.log.Error("Failed to add creator to room", "error", err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit room creation", "error", err)
		return err
	}

	room.Members = []uuid.UUID{room.CreatedBy}
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	query := `
		SELECT id, name, description, password_hash, created_by, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`

	room := &domain.Room{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Description, &room.PasswordHash,
		&room.CreatedBy, &room.CreatedAt, &room.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		r.log.Error("Failed to get room by ID", "error", err)
		return nil, err
	}

	members, err := r.getMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Members = members

	return room, nil
}

// getMembers returns member IDs in join order.
func (r *roomRepository) getMembers(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM room_members
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to get room members", "error", err)
		return nil, err
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			r.log.Error("Failed to scan member", "error", err)
			return nil, err
		}
		members = append(members, userID)
	}

	return members, nil
}

func (r *roomRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.password_hash, r.created_by, r.created_at, r.updated_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list rooms", "error", err)
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		err := rows.Scan(
			&room.ID, &room.Name, &room.Description, &room.PasswordHash,
			&room.CreatedBy, &room.CreatedAt, &room.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan room", "error", err)
			return nil, err
		}
		rooms = append(rooms, room)
	}

	for _, room := range rooms {
		members, err := r.getMembers(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		room.Members = members
	}

	return rooms, nil
}

func (r *roomRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO room_members (room_id, user_id, joined_at)
		VALUES ($1, $2, now())
		ON CONFLICT (room_id, user_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, query, roomID, userID); err != nil {
		r.log.Error("Failed to add member", "error", err)
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID); err != nil {
		r.log.Error("Failed to bump room timestamp", "error", err)
		return err
	}

	return tx.Commit(ctx)
}

func (r *roomRepository) Touch(ctx context.Context, roomID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID)
	if err != nil {
		r.log.Error("Failed to touch room", "error", err)
	}
	return err
}
