package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/repository"
	"taskroom/pkg/logger"

	"github.com/google/uuid"
)

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, displayName *string) (*domain.User, error)
	UploadProfileImage(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*domain.User, error)
	DeleteProfileImage(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	blobRepo repository.BlobRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, blobRepo repository.BlobRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		blobRepo: blobRepo,
		log:      log,
	}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uuid.UUID, displayName *string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if displayName != nil {
		name := strings.TrimSpace(*displayName)
		if name == "" {
			return nil, errors.New("display name cannot be empty")
		}
		if len(name) > 100 {
			return nil, errors.New("display name is too long (max 100 characters)")
		}
		user.DisplayName = name
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadProfileImage stores one image per user, keyed by user ID. Any
// previously stored image is deleted before the new one is written.
func (s *userService) UploadProfileImage(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*domain.User, error) {
	if len(data) == 0 {
		return nil, errors.New("image data is empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return nil, fmt.Errorf("unsupported image type: %q", ext)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ProfileImage != nil {
		if oldKey := blobKeyFromURL(*user.ProfileImage); oldKey != "" {
			if err := s.blobRepo.Delete(ctx, oldKey); err != nil {
				s.log.Warn("Failed to delete previous profile image", "error", err, "user_id", userID)
			}
		}
	}

	key := userID.String() + ext
	url, err := s.blobRepo.Put(ctx, key, data)
	if err != nil {
		s.log.Error("Failed to store profile image", "error", err, "user_id", userID)
		return nil, err
	}

	user.ProfileImage = &url
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) DeleteProfileImage(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ProfileImage != nil {
		if key := blobKeyFromURL(*user.ProfileImage); key != "" {
			if err := s.blobRepo.Delete(ctx, key); err != nil {
				s.log.Warn("Failed to delete profile image blob", "error", err, "user_id", userID)
			}
		}
		user.ProfileImage = nil
		user.UpdatedAt = time.Now()
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	user.PasswordHash = ""
	return user, nil
}

func blobKeyFromURL(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return ""
	}
	return url[idx+1:]
}
