package service

import (
	"taskroom/internal/config"
	"taskroom/internal/repository"
	"taskroom/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Room      RoomService
	Task      TaskService
	Chat      ChatService
	Sync      SyncService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	taskSvc := NewTaskService(repos.Task, repos.Room, repos.User, repos.Events, log)
	chatSvc := NewChatService(repos.Message, repos.Room, repos.User, repos.Events, log)

	return &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		User:      NewUserService(repos.User, repos.Blob, log),
		Room:      NewRoomService(repos.Room, repos.User, log),
		Task:      taskSvc,
		Chat:      chatSvc,
		Sync:      NewSyncService(repos.Room, repos.Task, repos.Message, repos.Events, taskSvc, chatSvc, cfg.Sync.CallTimeout, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
