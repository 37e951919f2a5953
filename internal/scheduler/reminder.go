package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/internal/service"
	"habitstake.app/backend/pkg/logger"
)

const sweepBatchSize = 100

// ReminderScheduler periodically sweeps due reminders and delivers them as
// notifications. A reminder is marked sent only after its notification was
// created, so a crashed sweep retries on the next tick.
type ReminderScheduler struct {
	reminders     repository.ReminderRepository
	notifications service.NotificationService
	spec          string
	cron          *cron.Cron
}

func NewReminderScheduler(
	reminders repository.ReminderRepository,
	notifications service.NotificationService,
	spec string,
) *ReminderScheduler {
	return &ReminderScheduler{
		reminders:     reminders,
		notifications: notifications,
		spec:          spec,
		cron:          cron.New(),
	}
}

func (s *ReminderScheduler) Start() {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		logger.Fatalf("invalid reminder cron spec %q: %v", s.spec, err)
	}
	s.cron.Start()
	logger.Infof("reminder scheduler started (spec %q)", s.spec)
}

func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ReminderScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.reminders.FindDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		logger.Error("reminder sweep failed: ", err)
		return
	}
	if len(due) == 0 {
		return
	}

	sent := make([]uint, 0, len(due))
	for _, reminder := range due {
		challengeID := reminder.ChallengeID
		notif := &model.Notification{
			UserID:      reminder.UserID,
			ChallengeID: &challengeID,
			Type:        model.NotificationReminder,
			Message:     reminder.Message,
		}
		if err := s.notifications.CreateNotification(ctx, notif); err != nil {
			logger.Error("failed to deliver reminder: ", err)
			continue
		}
		sent = append(sent, reminder.ID)
	}

	if err := s.reminders.MarkSent(ctx, sent); err != nil {
		logger.Error("failed to mark reminders sent: ", err)
		return
	}

	logger.Infof("delivered %d reminders", len(sent))
}
