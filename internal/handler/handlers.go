package handler

import (
	"taskroom/internal/config"
	"taskroom/internal/service"
	"taskroom/pkg/logger"
)

// Handlers aggregates all HTTP and WebSocket handlers.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Room      *RoomHandler
	Task      *TaskHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, cfg.Upload, log),
		Room:      NewRoomHandler(services.Room, log),
		Task:      NewTaskHandler(services.Task, log),
		Chat:      NewChatHandler(services.Chat, log),
		WebSocket: NewWebSocketHandler(services.Sync, services.Auth, log),
	}
}
