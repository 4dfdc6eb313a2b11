package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid представляет отклик исполнителя на задание.
// На одно задание от одного исполнителя допускается только один отклик.
type Bid struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TaskID    uuid.UUID `db:"task_id" json:"task_id"`
	WorkerID  uuid.UUID `db:"worker_id" json:"worker_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
