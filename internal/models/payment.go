package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы эскроу
const (
	EscrowStatusLocked   = "locked"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Типы транзакций
const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// Wallet представляет баланс пользователя.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   float64   `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction представляет запись о движении средств по кошельку.
type Transaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	TaskID      *uuid.UUID `db:"task_id" json:"task_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Escrow представляет средства, замороженные под конкретное задание.
// На задание допускается не более одной записи эскроу.
type Escrow struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	TaskID     uuid.UUID  `db:"task_id" json:"task_id"`
	Amount     float64    `db:"amount" json:"amount"`
	Fee        float64    `db:"fee" json:"fee"`
	Total      float64    `db:"total" json:"total"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
}
