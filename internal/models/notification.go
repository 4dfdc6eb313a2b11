package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений. Совпадают с типами событий, отправляемых по WebSocket.
const (
	NotificationBidPlaced           = "bid.new"
	NotificationBidAccepted         = "bid.accepted"
	NotificationBidRejected         = "bid.rejected"
	NotificationWorkerArrived       = "task.worker_arrived"
	NotificationCompletionRequested = "task.completion_requested"
	NotificationTaskCompleted       = "task.completed"
	NotificationTaskCancelled       = "task.cancelled"
	NotificationWalletCredited      = "wallet.credited"
)

// Notification представляет уведомление пользователя.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Kind      string     `db:"kind" json:"kind"`
	TaskID    *uuid.UUID `db:"task_id" json:"task_id,omitempty"`
	Text      string     `db:"text" json:"text"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
