package repository

import (
	"context"

	"taskroom/internal/domain"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.ChatMessage) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	query := `
		INSERT INTO messages (id, room_id, content, sender_id, sender_name, sender_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.RoomID, message.Content,
		message.Sender.ID, message.Sender.Name, message.Sender.ProfileImage,
	).Scan(&message.Timestamp)

	if err != nil {
		r.log.Error("Failed to create message", "error", err, "room_id", message.RoomID)
		return err
	}

	return nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, room_id, content, sender_id, sender_name, sender_image, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		message := &domain.ChatMessage{}
		err := rows.Scan(
			&message.ID, &message.RoomID, &message.Content,
			&message.Sender.ID, &message.Sender.Name, &message.Sender.ProfileImage,
			&message.Timestamp,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, nil
}
