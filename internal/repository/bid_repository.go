package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskdom/backend/internal/models"
)

// BidRepository отвечает за работу с откликами.
type BidRepository struct {
	db *sqlx.DB
}

// Ошибки уровня репозитория.
var (
	ErrBidNotFound  = errors.New("bid not found")
	ErrDuplicateBid = errors.New("duplicate bid")
	ErrTaskNotOpen  = errors.New("task is not open")
	ErrCommitFailed = errors.New("commit failed")
)

// NewBidRepository создаёт новый экземпляр.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

const bidColumns = `id, task_id, worker_id, amount, message, status, created_at, updated_at`

// Create сохраняет отклик. Повторный отклик того же исполнителя
// на то же задание отклоняется уникальным индексом.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (task_id, worker_id, amount, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(
		ctx,
		query,
		bid.TaskID,
		bid.WorkerID,
		bid.Amount,
		bid.Message,
		bid.Status,
	).Scan(&bid.ID, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateBid
		}
		return fmt.Errorf("bid repository: insert %w", err)
	}
	return nil
}

// GetByID возвращает отклик по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	if err := r.db.GetContext(ctx, &bid, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by id %w", err)
	}
	return &bid, nil
}

// ListByTask возвращает отклики на задание, новые первыми.
func (r *BidRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE task_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bids, query, taskID); err != nil {
		return nil, fmt.Errorf("bid repository: list by task %w", err)
	}
	return bids, nil
}

// ListByWorker возвращает отклики исполнителя, новые первыми.
func (r *BidRepository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids WHERE worker_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bids, query, workerID); err != nil {
		return nil, fmt.Errorf("bid repository: list by worker %w", err)
	}
	return bids, nil
}

// AcceptResult содержит итог принятия отклика.
type AcceptResult struct {
	Bid               *models.Bid
	Task              *models.Task
	RejectedWorkerIDs []uuid.UUID
}

// Accept атомарно принимает отклик: задание блокируется FOR UPDATE,
// статус перепроверяется внутри транзакции, остальные pending отклики
// отклоняются, задание переходит в in_progress с назначенным
// исполнителем. Из двух конкурирующих принятий выигрывает ровно одно,
// проигравшее получает ErrTaskNotOpen.
func (r *BidRepository) Accept(ctx context.Context, bidID uuid.UUID) (*AcceptResult, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("bid repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var bid models.Bid
	bidQuery := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &bid, bidQuery, bidID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: lock bid %w", err)
	}

	// Блокируем строку задания: все конкурирующие принятия
	// сериализуются на этой блокировке.
	var task models.Task
	taskQuery := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &task, taskQuery, bid.TaskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("bid repository: lock task %w", err)
	}

	if task.Status != models.TaskStatusOpen {
		err = ErrTaskNotOpen
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE bids SET status = $2, updated_at = NOW() WHERE id = $1`,
		bid.ID, models.BidStatusAccepted,
	); err != nil {
		return nil, fmt.Errorf("bid repository: accept bid %w", err)
	}
	bid.Status = models.BidStatusAccepted

	// Остальные pending отклики на это задание отклоняются.
	var rejected []uuid.UUID
	rejectQuery := `
		UPDATE bids
		SET status = $3, updated_at = NOW()
		WHERE task_id = $1 AND id <> $2 AND status = $4
		RETURNING worker_id
	`
	if err = tx.SelectContext(ctx, &rejected, rejectQuery,
		task.ID, bid.ID, models.BidStatusRejected, models.BidStatusPending,
	); err != nil {
		return nil, fmt.Errorf("bid repository: reject siblings %w", err)
	}

	taskUpdate := `
		UPDATE tasks
		SET status = $2,
		    assigned_worker_id = $3,
		    accepted_bid_amount = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err = tx.QueryRowxContext(ctx, taskUpdate,
		task.ID, models.TaskStatusInProgress, bid.WorkerID, bid.Amount,
	).Scan(&task.UpdatedAt); err != nil {
		return nil, fmt.Errorf("bid repository: update task %w", err)
	}
	task.Status = models.TaskStatusInProgress
	task.AssignedWorkerID = &bid.WorkerID
	task.AcceptedBidAmount = &bid.Amount

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("bid repository: %w: %v", ErrCommitFailed, err)
	}

	return &AcceptResult{
		Bid:               &bid,
		Task:              &task,
		RejectedWorkerIDs: rejected,
	}, nil
}
