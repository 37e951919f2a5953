package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"habitstake.app/backend/internal/dto"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/pkg/logger"
)

// AdvisoryService produces reminder times, challenge suggestions and progress
// reports from simple heuristics over the user's history. It is advisory
// only: callers fall back to defaults when it errors.
type AdvisoryService interface {
	BestReminderTime(ctx context.Context, userID uuid.UUID) time.Time
	ChallengeSuggestions(ctx context.Context, userID uuid.UUID) ([]dto.ChallengeSuggestion, error)
	SuccessProbability(ctx context.Context, challengeID uuid.UUID) int
	ProgressReport(ctx context.Context, userID uuid.UUID) (string, error)
}

type advisoryService struct {
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
}

func NewAdvisoryService(challengeRepo repository.ChallengeRepository, userRepo repository.UserRepository) AdvisoryService {
	return &advisoryService{
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
	}
}

// BestReminderTime picks tomorrow at the user's average completion hour over
// the last 7 days, or 18:00 when there is no history.
func (s *advisoryService) BestReminderTime(ctx context.Context, userID uuid.UUID) time.Time {
	completed, err := s.challengeRepo.FindRecentCompleted(ctx, userID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		logger.Error("failed to compute best reminder time: ", err)
		return defaultReminderTime()
	}

	if len(completed) == 0 {
		return defaultReminderTime()
	}

	totalHours := 0
	counted := 0
	for _, challenge := range completed {
		if challenge.CompletedAt == nil {
			continue
		}
		totalHours += challenge.CompletedAt.Hour()
		counted++
	}
	if counted == 0 {
		return defaultReminderTime()
	}

	averageHour := (totalHours + counted/2) / counted

	tomorrow := time.Now().AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), averageHour, 0, 0, 0, tomorrow.Location())
}

func (s *advisoryService) ChallengeSuggestions(ctx context.Context, userID uuid.UUID) ([]dto.ChallengeSuggestion, error) {
	counts, err := s.challengeRepo.CountCompletedByType(ctx, userID)
	if err != nil {
		return nil, err
	}

	mostSuccessful := model.ChallengeTypeCustom
	var best int64
	for challengeType, count := range counts {
		if count > best {
			best = count
			mostSuccessful = challengeType
		}
	}

	suggestions := baseSuggestions()
	for i := range suggestions {
		if suggestions[i].Type == string(mostSuccessful) {
			suggestions[i].Title = "[Recommended] " + suggestions[i].Title
			suggestions[i].RewardPoints += 10
		}
	}

	rand.Shuffle(len(suggestions), func(i, j int) {
		suggestions[i], suggestions[j] = suggestions[j], suggestions[i]
	})

	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions, nil
}

// SuccessProbability buckets the current progress rate into a rough estimate.
func (s *advisoryService) SuccessProbability(ctx context.Context, challengeID uuid.UUID) int {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return 50
	}

	if challenge.IsCompleted {
		return 100
	}
	if challenge.TargetValue <= 0 {
		return 50
	}

	progressRate := float64(challenge.CurrentValue) / float64(challenge.TargetValue)
	switch {
	case progressRate >= 0.5:
		return 80
	case progressRate >= 0.25:
		return 60
	default:
		return 40
	}
}

func (s *advisoryService) ProgressReport(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	challenges, err := s.challengeRepo.FindByOwner(ctx, userID)
	if err != nil {
		return "", err
	}

	total := len(challenges)
	completed := 0
	typeCounts := make(map[model.ChallengeType]int)
	for _, challenge := range challenges {
		if challenge.IsCompleted {
			completed++
			typeCounts[challenge.Type]++
		}
	}

	completionRate := 0
	if total > 0 {
		completionRate = int(float64(completed)/float64(total)*100 + 0.5)
	}

	mostSuccessful := "none yet"
	if completed > 0 {
		type typeCount struct {
			t model.ChallengeType
			n int
		}
		ranked := make([]typeCount, 0, len(typeCounts))
		for t, n := range typeCounts {
			ranked = append(ranked, typeCount{t, n})
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].n > ranked[j].n })
		mostSuccessful = string(ranked[0].t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Report for %s\n", user.Username)
	b.WriteString("=============================\n")
	fmt.Fprintf(&b, "- Total challenges: %d\n", total)
	fmt.Fprintf(&b, "- Completed: %d\n", completed)
	fmt.Fprintf(&b, "- Completion rate: %d%%\n", completionRate)
	fmt.Fprintf(&b, "- Most successful type: %s\n", mostSuccessful)
	fmt.Fprintf(&b, "- Current points: %d\n\n", user.Points)
	b.WriteString(encouragementMessage(completionRate))

	return b.String(), nil
}

func defaultReminderTime() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
}

func baseSuggestions() []dto.ChallengeSuggestion {
	return []dto.ChallengeSuggestion{
		{
			Title:        "Morning run",
			Type:         string(model.ChallengeTypeExercise),
			Description:  "Run for 15 minutes every morning",
			TargetValue:  7,
			RewardPoints: 35,
		},
		{
			Title:        "Deep work",
			Type:         string(model.ChallengeTypeNoPhone),
			Description:  "No phone during working hours",
			TargetValue:  5,
			RewardPoints: 25,
		},
		{
			Title:        "Learn a new skill",
			Type:         string(model.ChallengeTypeStudy),
			Description:  "Study for 30 minutes a day",
			TargetValue:  7,
			RewardPoints: 35,
		},
		{
			Title:        "Early to bed, early to rise",
			Type:         string(model.ChallengeTypeCustom),
			Description:  "Sleep before 11pm, wake before 7am",
			TargetValue:  7,
			RewardPoints: 35,
		},
	}
}

func encouragementMessage(completionRate int) string {
	switch {
	case completionRate >= 80:
		return "Outstanding discipline. Keep it up!"
	case completionRate >= 50:
		return "Well done! Consistency is winning."
	case completionRate > 0:
		return "A good start is half the battle. A little progress every day adds up."
	default:
		return "Start your first challenge. A journey of a thousand miles begins with a single step."
	}
}
