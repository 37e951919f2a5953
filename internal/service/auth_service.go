package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/pkg/apperror"
	"habitstake.app/backend/pkg/storage"
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*dto.MeResponse, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file dto.AvatarFile) (string, error)
}

type authService struct {
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
	secret       string
	tokenTTL     time.Duration
	signupBonus  int
}

func NewAuthService(repo repository.UserRepository, imageStorage storage.ImageStorage, cfg *config.Config) AuthService {
	return &authService{
		repo:         repo,
		imageStorage: imageStorage,
		secret:       cfg.JWTSecret,
		tokenTTL:     cfg.JWTExpiry,
		signupBonus:  cfg.Points.SignupBonus,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Points:       s.signupBonus,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "username or email is already taken")
		}
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrUnauthorized, "invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.Wrap(apperror.ErrUnauthorized, "invalid email or password")
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	return &dto.MeResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Points:    user.Points,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *authService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file dto.AvatarFile) (string, error) {
	if s.imageStorage == nil {
		return "", apperror.Wrap(apperror.ErrInvalidState, "avatar uploads are not configured")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.ErrNotFound
		}
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, file.Reader, "avatars", file.FileName)
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", err
	}

	// Old avatar is best-effort cleanup, the new URL is already saved
	if user.AvatarURL != nil && *user.AvatarURL != "" {
		_ = s.imageStorage.DeleteImage(ctx, *user.AvatarURL)
	}

	return url, nil
}

func (s *authService) buildAuthResponse(user *model.User) (*dto.AuthResponse, error) {
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Points:      user.Points,
		AccessToken: token,
	}, nil
}
