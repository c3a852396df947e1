package service

import (
	"context"
	"errors"
	"strings"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RoomService interface {
	Create(ctx context.Context, userID uuid.UUID, name string, description *string, password string) (*domain.Room, error)
	Join(ctx context.Context, roomID, userID uuid.UUID, password string) (*JoinResult, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error)
	Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.Member, error)
}

type JoinResult struct {
	Room          *domain.Room `json:"room"`
	AlreadyMember bool         `json:"already_member"`
}

type roomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, userRepo repository.UserRepository, log logger.Logger) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
		log:      log,
	}
}

func (s *roomService) Create(ctx context.Context, userID uuid.UUID, name string, description *string, password string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("room name is required")
	}
	if len(name) > 100 {
		return nil, errors.New("room name is too long (max 100 characters)")
	}
	if password == "" {
		return nil, errors.New("room password is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash room password", "error", err)
		return nil, errors.New("failed to hash room password")
	}

	room := &domain.Room{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		PasswordHash: string(passwordHash),
		CreatedBy:    userID,
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		s.log.Error("Failed to create room", "error", err)
		return nil, errors.New("failed to create room")
	}

	s.log.Info("Room created", "room_id", room.ID, "created_by", userID)
	return room, nil
}

// Join is idempotent for existing members: it reports AlreadyMember
// without touching the member list.
func (s *roomService) Join(ctx context.Context, roomID, userID uuid.UUID, password string) (*JoinResult, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredential
	}

	if room.HasMember(userID) {
		return &JoinResult{Room: room, AlreadyMember: true}, nil
	}

	if err := s.roomRepo.AddMember(ctx, roomID, userID); err != nil {
		s.log.Error("Failed to add member", "error", err, "room_id", roomID, "user_id", userID)
		return nil, errors.New("failed to join room")
	}

	room.Members = append(room.Members, userID)
	s.log.Info("User joined room", "room_id", roomID, "user_id", userID)
	return &JoinResult{Room: room}, nil
}

func (s *roomService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	return s.roomRepo.ListByMember(ctx, userID)
}

// Get enforces the membership invariant: a room is only readable by its
// members.
func (s *roomService) Get(ctx context.Context, roomID, userID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, apperrors.ErrForbidden
	}
	return room, nil
}

// GetMembers resolves each member ID to its current profile, in join
// order. Members whose profile no longer exists are silently skipped.
func (s *roomService) GetMembers(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.Member, error) {
	room, err := s.Get(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	members := make([]*domain.Member, 0, len(room.Members))
	for _, memberID := range room.Members {
		user, err := s.userRepo.GetByID(ctx, memberID)
		if err != nil {
			continue
		}

		member := &domain.Member{
			ID:    memberID,
			Name:  user.DisplayName,
			Email: user.Email,
		}
		if member.Name == "" {
			member.Name = domain.DefaultDisplayName
		}
		if user.ProfileImage != nil {
			member.ProfileImage = *user.ProfileImage
		}
		members = append(members, member)
	}

	return members, nil
}
