package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/metrics"
	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/pricing"
	"github.com/taskdom/backend/internal/repository"
	"github.com/taskdom/backend/internal/validation"
)

// PaymentRepository описывает хранилище кошельков и эскроу.
type PaymentRepository interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error)
	Debit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	GetEscrowByTask(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error)
	LockEscrow(ctx context.Context, taskID uuid.UUID, amount, fee, total float64) (*models.Escrow, bool, error)
	ReleaseEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error)
	RefundEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error)
}

// PaymentService реализует бизнес-логику платежей.
type PaymentService struct {
	repo     PaymentRepository
	notifier WSNotifier
}

// NewPaymentService создаёт новый сервис.
func NewPaymentService(repo PaymentRepository, notifier WSNotifier) *PaymentService {
	return &PaymentService{repo: repo, notifier: notifier}
}

// GetWallet возвращает кошелёк пользователя.
func (s *PaymentService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

// Deposit пополняет баланс пользователя.
func (s *PaymentService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*models.Transaction, error) {
	if err := validation.ValidateAmount("сумма пополнения", amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.repo.Credit(ctx, userID, amount, "Пополнение баланса", nil)
}

// Credit зачисляет средства на кошелёк пользователя.
func (s *PaymentService) Credit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error) {
	if err := validation.ValidateAmount("сумма зачисления", amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	txn, err := s.repo.Credit(ctx, userID, amount, description, taskID)
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyUser(userID, models.NotificationWalletCredited, taskID,
			fmt.Sprintf("На кошелёк зачислено %.2f ₽", amount)); err != nil {
			logger.Log.WithError(err).Warn("не удалось уведомить о зачислении")
		}
	}

	return txn, nil
}

// Debit списывает средства с кошелька пользователя.
func (s *PaymentService) Debit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error) {
	if err := validation.ValidateAmount("сумма списания", amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	txn, err := s.repo.Debit(ctx, userID, amount, description, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWalletNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "кошелёк не найден")
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, apperror.ErrInsufficientBalance
		default:
			return nil, fmt.Errorf("debit: %w", err)
		}
	}
	return txn, nil
}

// ListTransactions возвращает историю транзакций пользователя.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// GetEscrow возвращает эскроу по заданию.
func (s *PaymentService) GetEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.GetEscrowByTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	return escrow, nil
}

// LockEscrow замораживает средства под задание: сумма отклика плюс
// комиссия платформы. Повторный вызов для того же задания идемпотентен;
// признак created сообщает вызывающему, создал ли именно этот вызов
// заморозку. Компенсировать чужую заморозку нельзя.
func (s *PaymentService) LockEscrow(ctx context.Context, taskID uuid.UUID, amount float64) (*models.Escrow, bool, error) {
	if err := validation.ValidateAmount("сумма эскроу", amount); err != nil {
		return nil, false, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	fee := pricing.PlatformFee(amount)
	total := pricing.EscrowTotal(amount)

	escrow, created, err := s.repo.LockEscrow(ctx, taskID, amount, fee, total)
	if err != nil {
		return nil, false, fmt.Errorf("lock escrow: %w", err)
	}
	if created {
		metrics.EscrowLocked.Inc()
	}
	return escrow, created, nil
}

// ReleaseEscrow выплачивает замороженные средства после завершения задания.
func (s *PaymentService) ReleaseEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.ReleaseEscrow(ctx, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEscrowNotFound):
			return nil, apperror.ErrEscrowNotFound
		case errors.Is(err, repository.ErrEscrowNotLocked):
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "эскроу уже закрыт")
		default:
			return nil, fmt.Errorf("release escrow: %w", err)
		}
	}
	metrics.EscrowReleased.Inc()
	return escrow, nil
}

// RefundEscrow возвращает замороженные средства при отмене или сбое принятия.
func (s *PaymentService) RefundEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.RefundEscrow(ctx, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEscrowNotFound):
			return nil, apperror.ErrEscrowNotFound
		case errors.Is(err, repository.ErrEscrowNotLocked):
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "эскроу уже закрыт")
		default:
			return nil, fmt.Errorf("refund escrow: %w", err)
		}
	}
	metrics.EscrowRefunded.Inc()
	return escrow, nil
}
