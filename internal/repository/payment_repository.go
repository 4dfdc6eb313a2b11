package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskdom/backend/internal/models"
)

// PaymentRepository отвечает за кошельки, транзакции и эскроу.
type PaymentRepository struct {
	db *sqlx.DB
}

// Ошибки уровня репозитория.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrEscrowNotLocked     = errors.New("escrow is not locked")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetWallet возвращает кошелёк пользователя, создавая его при первом обращении.
func (r *PaymentRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, balance, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: get wallet %w", err)
	}
	return &wallet, nil
}

// Credit зачисляет средства на кошелёк и записывает транзакцию.
// Инкремент выполняется атомарно, блокировка строки не требуется.
func (r *PaymentRepository) Credit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	walletQuery := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
	`
	if _, err = tx.ExecContext(ctx, walletQuery, userID, amount); err != nil {
		return nil, fmt.Errorf("payment repository: credit %w", err)
	}

	txn := &models.Transaction{
		UserID:      userID,
		TaskID:      taskID,
		Type:        models.TransactionTypeCredit,
		Amount:      amount,
		Description: description,
	}
	if err = insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit %w", err)
	}

	return txn, nil
}

// Debit списывает средства с кошелька с проверкой достаточности баланса.
// Строка кошелька блокируется FOR UPDATE на время проверки.
func (r *PaymentRepository) Debit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var balance float64
	if err = tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrWalletNotFound
			return nil, err
		}
		return nil, fmt.Errorf("payment repository: lock wallet %w", err)
	}

	if balance < amount {
		err = ErrInsufficientBalance
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - $2, updated_at = NOW() WHERE user_id = $1`,
		userID, amount,
	); err != nil {
		return nil, fmt.Errorf("payment repository: debit %w", err)
	}

	txn := &models.Transaction{
		UserID:      userID,
		TaskID:      taskID,
		Type:        models.TransactionTypeDebit,
		Amount:      amount,
		Description: description,
	}
	if err = insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("payment repository: commit %w", err)
	}

	return txn, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, task_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := tx.QueryRowxContext(ctx, query,
		txn.UserID, txn.TaskID, txn.Type, txn.Amount, txn.Description,
	).Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return fmt.Errorf("payment repository: insert transaction %w", err)
	}
	return nil
}

// ListTransactions возвращает транзакции пользователя, новые первыми.
func (r *PaymentRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var txns []models.Transaction
	query := `
		SELECT id, user_id, task_id, type, amount, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &txns, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return txns, nil
}

const escrowColumns = `id, task_id, amount, fee, total, status, created_at, released_at`

// GetEscrowByTask возвращает запись эскроу по заданию.
func (r *PaymentRepository) GetEscrowByTask(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	query := `SELECT ` + escrowColumns + ` FROM escrow WHERE task_id = $1`
	if err := r.db.GetContext(ctx, &escrow, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow %w", err)
	}
	return &escrow, nil
}

// LockEscrow замораживает средства под задание. Операция идемпотентна:
// повторный вызов для того же задания возвращает существующую запись
// без повторной заморозки.
func (r *PaymentRepository) LockEscrow(ctx context.Context, taskID uuid.UUID, amount, fee, total float64) (*models.Escrow, bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("payment repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing models.Escrow
	err = tx.GetContext(ctx, &existing,
		`SELECT `+escrowColumns+` FROM escrow WHERE task_id = $1 FOR UPDATE`, taskID)
	if err == nil {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, false, fmt.Errorf("payment repository: commit %w", commitErr)
		}
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("payment repository: check escrow %w", err)
	}
	err = nil

	var escrow models.Escrow
	insertQuery := `
		INSERT INTO escrow (task_id, amount, fee, total, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + escrowColumns
	if err = tx.GetContext(ctx, &escrow, insertQuery,
		taskID, amount, fee, total, models.EscrowStatusLocked,
	); err != nil {
		return nil, false, fmt.Errorf("payment repository: lock escrow %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("payment repository: commit %w", err)
	}

	return &escrow, true, nil
}

// ReleaseEscrow переводит эскроу из locked в released.
// Повторный вызов вернёт ErrEscrowNotLocked: запись уже released.
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	return r.closeEscrow(ctx, taskID, models.EscrowStatusReleased)
}

// RefundEscrow переводит эскроу из locked в refunded.
// Используется как компенсация при неудачном принятии отклика.
func (r *PaymentRepository) RefundEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	return r.closeEscrow(ctx, taskID, models.EscrowStatusRefunded)
}

func (r *PaymentRepository) closeEscrow(ctx context.Context, taskID uuid.UUID, status string) (*models.Escrow, error) {
	var escrow models.Escrow
	query := `
		UPDATE escrow
		SET status = $2, released_at = NOW()
		WHERE task_id = $1 AND status = $3
		RETURNING ` + escrowColumns

	err := r.db.GetContext(ctx, &escrow, query, taskID, status, models.EscrowStatusLocked)
	if err == nil {
		return &escrow, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment repository: close escrow %w", err)
	}

	// Различаем "эскроу нет" и "эскроу уже закрыт".
	var current string
	if err := r.db.GetContext(ctx, &current, `SELECT status FROM escrow WHERE task_id = $1`, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: check escrow %w", err)
	}
	return nil, ErrEscrowNotLocked
}
