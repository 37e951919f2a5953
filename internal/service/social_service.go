package service

import (
	"context"
	"encoding/json"
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

const activeChallengesCacheKey = "social:active_challenges"
const activeChallengesCacheTTL = 30 * time.Second

// SocialService coordinates stake escrow, joining and settlement of social
// challenges. A social challenge is Open until its end date, Closed between
// end date and settlement, and Settled after; Settled is terminal.
type SocialService interface {
	CreateSocialChallenge(ctx context.Context, ownerID uuid.UUID, input dto.CreateSocialChallengeInput) (*dto.SocialChallengeResponse, error)
	JoinSocialChallenge(ctx context.Context, userID, challengeID uuid.UUID) (*dto.SocialChallengeResponse, error)
	SettleSocialChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*dto.SettlementResult, error)
	GetActiveSocialChallenges(ctx context.Context) ([]dto.SocialChallengeResponse, error)
	GetUserSocialChallenges(ctx context.Context, userID uuid.UUID) ([]dto.SocialChallengeResponse, error)
	CanJoinChallenge(ctx context.Context, userID, challengeID uuid.UUID) bool
}

type socialService struct {
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
	notifications NotificationService
	redisClient   *redis.Client

	stakeMinimum    int
	defaultDuration time.Duration
}

func NewSocialService(
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
	redisClient *redis.Client,
	cfg *config.Config,
) SocialService {
	return &socialService{
		challengeRepo:   challengeRepo,
		userRepo:        userRepo,
		notifications:   notifications,
		redisClient:     redisClient,
		stakeMinimum:    cfg.Points.StakeMinimum,
		defaultDuration: cfg.Points.SocialChallengeDuration,
	}
}

func (s *socialService) CreateSocialChallenge(ctx context.Context, ownerID uuid.UUID, input dto.CreateSocialChallengeInput) (*dto.SocialChallengeResponse, error) {
	if input.Title == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "title is required")
	}
	if input.StakePoints < s.stakeMinimum {
		return nil, apperror.Wrap(apperror.ErrInvalidInput,
			fmt.Sprintf("stake must be at least %d points", s.stakeMinimum))
	}

	if _, err := s.userRepo.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
		}
		return nil, err
	}

	targetValue := input.TargetValue
	if targetValue <= 0 {
		targetValue = 1
	}
	endDate := time.Now().Add(s.defaultDuration)
	if input.EndDate != nil {
		endDate = *input.EndDate
	}

	challenge := &model.Challenge{
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		Type:        model.ChallengeTypeCustom,
		TargetValue: targetValue,
		EndDate:     endDate,
		IsSocial:    true,
		StakePoints: input.StakePoints,
	}

	// Escrow debit, challenge row and creator membership are one unit; an
	// overdraft rolls everything back.
	if err := s.challengeRepo.CreateSocial(ctx, challenge); err != nil {
		return nil, err
	}

	s.invalidateActiveCache(ctx)

	created, err := s.challengeRepo.FindByID(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}

	resp := dto.NewSocialChallengeResponse(created, time.Now())
	return &resp, nil
}

func (s *socialService) JoinSocialChallenge(ctx context.Context, userID, challengeID uuid.UUID) (*dto.SocialChallengeResponse, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "challenge not found")
		}
		return nil, err
	}

	now := time.Now()
	if !challenge.IsSocial {
		return nil, apperror.Wrap(apperror.ErrInvalidState, "this is not a social challenge")
	}
	if challenge.EndDate.Before(now) {
		return nil, apperror.Wrap(apperror.ErrChallengeClosed, "challenge has ended, joining is closed")
	}
	if challenge.HasParticipant(userID) {
		return nil, apperror.ErrAlreadyJoined
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
		}
		return nil, err
	}

	// Funds check and debit are one conditional statement inside Join; the
	// unique participant index catches a concurrent duplicate join.
	if err := s.challengeRepo.Join(ctx, challengeID, userID, challenge.StakePoints); err != nil {
		return nil, err
	}

	s.invalidateActiveCache(ctx)
	s.notifyJoin(challenge, userID)

	updated, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	resp := dto.NewSocialChallengeResponse(updated, now)
	return &resp, nil
}

func (s *socialService) SettleSocialChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*dto.SettlementResult, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "challenge not found")
		}
		return nil, err
	}

	now := time.Now()
	if !challenge.IsSocial {
		return nil, apperror.Wrap(apperror.ErrInvalidState, "this is not a social challenge")
	}
	if challenge.EndDate.After(now) {
		return nil, apperror.Wrap(apperror.ErrNotYetClosed, "challenge has not ended yet")
	}
	if challenge.UserID != callerID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "only the challenge creator can settle")
	}
	if challenge.IsSettled {
		return nil, apperror.ErrAlreadySettled
	}

	participants, err := s.userRepo.FindByIDs(ctx, challenge.ParticipantIDs())
	if err != nil {
		return nil, err
	}

	// Every participant counts as a winner; per-participant completion is
	// not tracked for social challenges.
	winners := make([]uuid.UUID, 0, len(participants))
	for _, participant := range participants {
		winners = append(winners, participant.ID)
	}

	totalPot := challenge.StakePoints * len(challenge.Participants)
	rewardPerWinner := 0
	if len(winners) > 0 {
		// Integer division: a non-divisible pot leaves a remainder that is
		// not distributed.
		rewardPerWinner = totalPot / len(winners)
	}

	// The settle transaction flips is_settled with a guard, so a concurrent
	// second settlement loses and pays nothing.
	if err := s.challengeRepo.Settle(ctx, challengeID, winners, rewardPerWinner, now); err != nil {
		return nil, err
	}

	s.invalidateActiveCache(ctx)
	s.notifySettlement(challenge, winners, rewardPerWinner)

	return &dto.SettlementResult{
		ChallengeID:     challenge.ID,
		Title:           challenge.Title,
		Winners:         winners,
		RewardPerWinner: rewardPerWinner,
		TotalPot:        totalPot,
	}, nil
}

func (s *socialService) GetActiveSocialChallenges(ctx context.Context) ([]dto.SocialChallengeResponse, error) {
	if cached := s.readActiveCache(ctx); cached != nil {
		return cached, nil
	}

	challenges, err := s.challengeRepo.FindActiveSocial(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	responses := make([]dto.SocialChallengeResponse, 0, len(challenges))
	for i := range challenges {
		responses = append(responses, dto.NewSocialChallengeResponse(&challenges[i], now))
	}

	s.writeActiveCache(ctx, responses)
	return responses, nil
}

func (s *socialService) GetUserSocialChallenges(ctx context.Context, userID uuid.UUID) ([]dto.SocialChallengeResponse, error) {
	challenges, err := s.challengeRepo.FindSocialByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	responses := make([]dto.SocialChallengeResponse, 0, len(challenges))
	for i := range challenges {
		responses = append(responses, dto.NewSocialChallengeResponse(&challenges[i], now))
	}
	return responses, nil
}

// CanJoinChallenge is a pure pre-check for the UI, it never mutates state.
func (s *socialService) CanJoinChallenge(ctx context.Context, userID, challengeID uuid.UUID) bool {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return false
	}

	if !challenge.IsSocial || challenge.IsSettled || challenge.EndDate.Before(time.Now()) {
		return false
	}

	if challenge.HasParticipant(userID) {
		return false
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user.Points < challenge.StakePoints {
		return false
	}

	return true
}

func (s *socialService) notifyJoin(challenge *model.Challenge, joinerID uuid.UUID) {
	if s.notifications == nil || challenge.UserID == joinerID {
		return
	}

	go func() {
		notif := &model.Notification{
			UserID:      challenge.UserID,
			ActorID:     &joinerID,
			ChallengeID: &challenge.ID,
			Type:        model.NotificationChallengeJoined,
			Message:     fmt.Sprintf("Someone joined your challenge: %s", challenge.Title),
		}
		if err := s.notifications.CreateNotification(context.Background(), notif); err != nil {
			logger.Error("failed to create join notification: ", err)
		}
	}()
}

func (s *socialService) notifySettlement(challenge *model.Challenge, winners []uuid.UUID, rewardPerWinner int) {
	if s.notifications == nil {
		return
	}

	go func() {
		for _, winnerID := range winners {
			notif := &model.Notification{
				UserID:      winnerID,
				ChallengeID: &challenge.ID,
				Type:        model.NotificationChallengeSettled,
				Message:     fmt.Sprintf("Challenge settled: %s. You won %d points!", challenge.Title, rewardPerWinner),
			}
			if err := s.notifications.CreateNotification(context.Background(), notif); err != nil {
				logger.Error("failed to create settlement notification: ", err)
			}
		}
	}()
}

func (s *socialService) readActiveCache(ctx context.Context) []dto.SocialChallengeResponse {
	if s.redisClient == nil {
		return nil
	}

	val, err := s.redisClient.Get(ctx, activeChallengesCacheKey).Result()
	if err != nil {
		return nil
	}

	var cached []dto.SocialChallengeResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil
	}
	return cached
}

func (s *socialService) writeActiveCache(ctx context.Context, responses []dto.SocialChallengeResponse) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(responses)
	if err != nil {
		return
	}
	s.redisClient.Set(ctx, activeChallengesCacheKey, payload, activeChallengesCacheTTL)
}

func (s *socialService) invalidateActiveCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	s.redisClient.Del(ctx, activeChallengesCacheKey)
}
