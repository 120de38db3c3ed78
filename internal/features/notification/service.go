package notification

import (
	"context"
)

type NotificationService interface {
	Notify(ctx context.Context, userID string, level NotificationLevel, message string, jobNumber int) error
	GetUserNotifications(ctx context.Context, userID string) ([]Notification, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

type NotificationServiceImpl struct {
	NotificationRepo NotificationRepository
}

func NewNotificationService(notificationRepo NotificationRepository) NotificationService {
	return &NotificationServiceImpl{
		NotificationRepo: notificationRepo,
	}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, userID string, level NotificationLevel, message string, jobNumber int) error {
	return s.NotificationRepo.Create(ctx, &Notification{
		UserID:    userID,
		Level:     level,
		Message:   message,
		JobNumber: jobNumber,
	})
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID string) ([]Notification, error) {
	return s.NotificationRepo.FindByUser(ctx, userID, 50)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.NotificationRepo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id, userID string) error {
	return s.NotificationRepo.MarkAsRead(ctx, id, userID)
}
