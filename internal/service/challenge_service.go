package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/pkg/apperror"
)

type ChallengeService interface {
	CreateChallenge(ctx context.Context, userID uuid.UUID, input dto.CreateChallengeInput) (*dto.ChallengeResponse, error)
	GetUserChallenges(ctx context.Context, userID uuid.UUID) ([]dto.ChallengeResponse, error)
}

type challengeService struct {
	repo     repository.ChallengeRepository
	advisory AdvisoryService
	reward   int
}

func NewChallengeService(repo repository.ChallengeRepository, advisory AdvisoryService, cfg *config.Config) ChallengeService {
	return &challengeService{
		repo:     repo,
		advisory: advisory,
		reward:   cfg.Points.ChallengeReward,
	}
}

func (s *challengeService) CreateChallenge(ctx context.Context, userID uuid.UUID, input dto.CreateChallengeInput) (*dto.ChallengeResponse, error) {
	challengeType := model.ChallengeType(input.Type)
	if input.Type == "" {
		challengeType = model.ChallengeTypeCustom
	}
	if !challengeType.Valid() {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown challenge type")
	}

	start := time.Now()
	if input.StartDate != nil {
		start = *input.StartDate
	}
	if err := validateDates(start, *input.EndDate); err != nil {
		return nil, err
	}

	challenge := &model.Challenge{
		UserID:       userID,
		Title:        input.Title,
		Description:  input.Description,
		Type:         challengeType,
		TargetValue:  input.TargetValue,
		EndDate:      *input.EndDate,
		RewardPoints: s.reward,
	}
	if input.StartDate != nil {
		challenge.StartDate = *input.StartDate
	}

	// First reminder comes from the advisory heuristic; challenge creation
	// never fails because of it.
	reminder := &model.Reminder{
		RemindAt: s.advisory.BestReminderTime(ctx, userID),
		Message:  fmt.Sprintf("Don't forget your challenge: %s!", input.Title),
	}

	if err := s.repo.Create(ctx, challenge, reminder); err != nil {
		return nil, err
	}

	resp := dto.NewChallengeResponse(challenge)
	return &resp, nil
}

func (s *challengeService) GetUserChallenges(ctx context.Context, userID uuid.UUID) ([]dto.ChallengeResponse, error) {
	challenges, err := s.repo.FindByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []dto.ChallengeResponse{}, nil
		}
		return nil, err
	}

	responses := make([]dto.ChallengeResponse, 0, len(challenges))
	for i := range challenges {
		responses = append(responses, dto.NewChallengeResponse(&challenges[i]))
	}
	return responses, nil
}

// end date sanity shared by personal and social creation
func validateDates(start, end time.Time) error {
	if !end.After(start) {
		return apperror.Wrap(apperror.ErrInvalidInput, "end date must be after start date")
	}
	return nil
}
