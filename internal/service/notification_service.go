package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
)

const maxNotifications = 100

// NotificationService reads persisted booking notifications.
type NotificationService struct {
	notifications *repository.NotificationRepository
	guard         *resilience.Guard
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notifications *repository.NotificationRepository, guard *resilience.Guard) *NotificationService {
	return &NotificationService{notifications: notifications, guard: guard}
}

// ListMine returns the caller's latest notifications.
func (s *NotificationService) ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > maxNotifications {
		limit = maxNotifications
	}
	return resilience.Call(ctx, s.guard, func(ctx context.Context) ([]model.Notification, error) {
		return s.notifications.ListByUser(ctx, userID, limit)
	})
}
