package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/pkg/apperror"
	"habitstake.app/backend/pkg/logger"
)

type ProgressService interface {
	LogProgress(ctx context.Context, challengeID, callerID uuid.UUID, input dto.LogProgressInput) (*dto.LogProgressResponse, error)
	GetHistory(ctx context.Context, challengeID, callerID uuid.UUID) (*dto.ProgressHistoryResponse, error)
}

type progressService struct {
	challengeRepo repository.ChallengeRepository
	progressRepo  repository.ProgressLogRepository
	notifications NotificationService
	redisClient   *redis.Client
	rateLimit     time.Duration
}

func NewProgressService(
	challengeRepo repository.ChallengeRepository,
	progressRepo repository.ProgressLogRepository,
	notifications NotificationService,
	redisClient *redis.Client,
	cfg *config.Config,
) ProgressService {
	return &progressService{
		challengeRepo: challengeRepo,
		progressRepo:  progressRepo,
		notifications: notifications,
		redisClient:   redisClient,
		rateLimit:     cfg.RateLimitProgress,
	}
}

func (s *progressService) LogProgress(ctx context.Context, challengeID, callerID uuid.UUID, input dto.LogProgressInput) (*dto.LogProgressResponse, error) {
	if input.Value < 0 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "progress value must not be negative")
	}

	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "challenge not found")
		}
		return nil, err
	}

	if challenge.UserID != callerID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "not your challenge")
	}

	if challenge.IsCompleted {
		return nil, apperror.Wrap(apperror.ErrInvalidState, "challenge is already completed")
	}

	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, callerID, "log_progress:"+challengeID.String(), s.rateLimit)
	if err != nil {
		// Rate limiting is advisory, never block progress on redis trouble
		logger.Warn("rate limit check failed: ", err)
	} else if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	entry := &model.ProgressLog{
		UserID: callerID,
		Value:  input.Value,
		Notes:  input.Notes,
	}

	result, err := s.challengeRepo.ApplyProgress(ctx, challengeID, entry)
	if err != nil {
		return nil, err
	}

	if result.CompletedNow {
		s.notifyCompletion(result.Challenge)
	}

	return &dto.LogProgressResponse{
		ProgressLog: dto.ProgressEntry{
			ID:        entry.ID,
			Value:     entry.Value,
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		},
		Challenge: dto.NewChallengeResponse(result.Challenge),
	}, nil
}

func (s *progressService) GetHistory(ctx context.Context, challengeID, callerID uuid.UUID) (*dto.ProgressHistoryResponse, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "challenge not found")
		}
		return nil, err
	}

	if challenge.UserID != callerID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "not your challenge")
	}

	logs, err := s.progressRepo.FindByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	history := make([]dto.ProgressEntry, 0, len(logs))
	positiveDays := 0
	for _, log := range logs {
		if log.Value > 0 {
			positiveDays++
		}
		history = append(history, dto.ProgressEntry{
			ID:        log.ID,
			Value:     log.Value,
			Notes:     log.Notes,
			CreatedAt: log.CreatedAt,
		})
	}

	return &dto.ProgressHistoryResponse{
		Challenge: dto.NewChallengeResponse(challenge),
		History:   history,
		Stats:     buildProgressStats(challenge, len(logs), positiveDays, time.Now()),
	}, nil
}

func buildProgressStats(challenge *model.Challenge, completedDays, positiveDays int, now time.Time) dto.ProgressStats {
	successRate := 0
	if completedDays > 0 {
		successRate = int(float64(positiveDays)/float64(completedDays)*100 + 0.5)
	}

	return dto.ProgressStats{
		TotalDays:      ceilDays(challenge.EndDate.Sub(challenge.StartDate)),
		CompletedDays:  completedDays,
		SuccessRate:    successRate,
		RemainingDays:  challenge.DaysRemaining(now),
		CompletionRate: challenge.CompletionRate(),
	}
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func (s *progressService) notifyCompletion(challenge *model.Challenge) {
	if s.notifications == nil {
		return
	}

	go func() {
		notif := &model.Notification{
			UserID:      challenge.UserID,
			ChallengeID: &challenge.ID,
			Type:        model.NotificationChallengeCompleted,
			Message:     fmt.Sprintf("Challenge completed: %s. You earned %d points!", challenge.Title, challenge.RewardPoints),
		}
		if err := s.notifications.CreateNotification(context.Background(), notif); err != nil {
			logger.Error("failed to create completion notification: ", err)
		}
	}()
}
