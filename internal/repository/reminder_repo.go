package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"habitstake.app/backend/internal/model"
)

type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	MarkSent(ctx context.Context, ids []uint) error
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *reminderRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Where("sent = ? AND remind_at <= ?", false, now).
		Order("remind_at ASC").
		Limit(limit).
		Find(&reminders).Error; err != nil {
		return nil, err
	}

	return reminders, nil
}

func (r *reminderRepository) MarkSent(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id IN ?", ids).
		Update("sent", true).Error
}
