package ws

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/models"
)

// notificationCreator — часть NotificationService, нужная хабу.
type notificationCreator interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, kind string, taskID *uuid.UUID, text string) (*models.Notification, error)
}

// NotificationServiceAdapter адаптирует NotificationService для использования в Hub.
type NotificationServiceAdapter struct {
	service notificationCreator
}

// NewNotificationServiceAdapter создаёт новый адаптер.
func NewNotificationServiceAdapter(service notificationCreator) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// SaveNotification реализует интерфейс NotificationSaver.
func (a *NotificationServiceAdapter) SaveNotification(ctx context.Context, userID uuid.UUID, kind string, taskID *uuid.UUID, text string) error {
	_, err := a.service.CreateNotification(ctx, userID, kind, taskID, text)
	return err
}
