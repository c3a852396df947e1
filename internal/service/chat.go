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

type ChatService interface {
	ListMessages(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.ChatMessage, error)
	SendMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (*domain.ChatMessage, error)
	EnrichSenders(ctx context.Context, messages []*domain.ChatMessage)
}

type chatService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	userRepo    repository.UserRepository
	events      repository.EventRepository
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, roomRepo repository.RoomRepository, userRepo repository.UserRepository, events repository.EventRepository, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		events:      events,
		log:         log,
	}
}

// ListMessages returns the room's messages in send order with each
// message's sender overlaid by that sender's current profile.
func (s *chatService) ListMessages(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.ChatMessage, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, apperrors.ErrForbidden
	}

	messages, err := s.messageRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.EnrichSenders(ctx, messages)
	return messages, nil
}

// EnrichSenders overlays each message's embedded sender snapshot with the
// sender's current profile. Profiles are fetched at most once per distinct
// sender per call; a failed fetch falls back to the embedded snapshot and
// is never surfaced to the caller.
func (s *chatService) EnrichSenders(ctx context.Context, messages []*domain.ChatMessage) {
	cache := make(map[uuid.UUID]domain.Sender)

	for _, message := range messages {
		senderID := message.Sender.ID
		if _, ok := cache[senderID]; ok {
			continue
		}

		user, err := s.userRepo.GetByID(ctx, senderID)
		if err != nil {
			// Keep the snapshot captured at send time.
			cache[senderID] = message.Sender
			continue
		}

		sender := domain.Sender{ID: senderID, Name: user.DisplayName}
		if sender.Name == "" {
			sender.Name = domain.DefaultDisplayName
		}
		if user.ProfileImage != nil {
			sender.ProfileImage = *user.ProfileImage
		}
		cache[senderID] = sender
	}

	for _, message := range messages {
		if sender, ok := cache[message.Sender.ID]; ok {
			message.Sender = sender
		}
	}
}

// SendMessage embeds the sender's profile as it stands at send time.
func (s *chatService) SendMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, errors.New("message content is required")
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, apperrors.ErrForbidden
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.New("failed to resolve sender profile")
	}

	sender := domain.Sender{ID: userID, Name: user.DisplayName}
	if sender.Name == "" {
		sender.Name = domain.DefaultDisplayName
	}
	if user.ProfileImage != nil {
		sender.ProfileImage = *user.ProfileImage
	}

	message := &domain.ChatMessage{
		ID:      uuid.New(),
		RoomID:  roomID,
		Content: content,
		Sender:  sender,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, roomID, repository.CollectionMessages); err != nil {
		s.log.Warn("Failed to publish message change", "error", err, "room_id", roomID)
	}

	return message, nil
}
