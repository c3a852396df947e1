package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"taskroom/internal/config"
	"taskroom/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Room      RoomRepository
	Task      TaskRepository
	Message   MessageRepository
	Events    EventRepository
	Blob      BlobRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log logger.Logger) (*Repositories, error) {
	blob, err := NewDiskBlobRepository(cfg.Upload.Dir, cfg.Upload.BaseURL, log)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		User:      NewUserRepository(db, log),
		Room:      NewRoomRepository(db, log),
		Task:      NewTaskRepository(db, log),
		Message:   NewMessageRepository(db, log),
		Events:    NewEventRepository(rdb, log),
		Blob:      blob,
		RateLimit: NewRateLimitRepository(rdb, log),
	}, nil
}
