package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
)

// LifecycleBids принимает отклики.
type LifecycleBids interface {
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	AcceptBid(ctx context.Context, ownerID, bidID uuid.UUID) (*repository.AcceptResult, error)
}

// LifecycleTasks управляет статусами заданий.
type LifecycleTasks interface {
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ApproveCompletion(ctx context.Context, ownerID, taskID uuid.UUID) (*models.Task, error)
}

// LifecyclePayments управляет эскроу и кошельками.
type LifecyclePayments interface {
	LockEscrow(ctx context.Context, taskID uuid.UUID, amount float64) (*models.Escrow, bool, error)
	ReleaseEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error)
	RefundEscrow(ctx context.Context, taskID uuid.UUID) (*models.Escrow, error)
	Credit(ctx context.Context, userID uuid.UUID, amount float64, description string, taskID *uuid.UUID) (*models.Transaction, error)
}

// LifecycleService оркестрирует многошаговые операции жизненного цикла:
// принятие отклика с заморозкой средств и завершение с выплатой.
type LifecycleService struct {
	bids     LifecycleBids
	tasks    LifecycleTasks
	payments LifecyclePayments
	retry    RetryPolicy
}

// NewLifecycleService создаёт новый оркестратор.
func NewLifecycleService(bids LifecycleBids, tasks LifecycleTasks, payments LifecyclePayments) *LifecycleService {
	return &LifecycleService{
		bids:     bids,
		tasks:    tasks,
		payments: payments,
		retry:    DefaultRetryPolicy,
	}
}

// AcceptOutcome содержит итог принятия отклика с оплатой.
type AcceptOutcome struct {
	Bid    *models.Bid    `json:"bid"`
	Task   *models.Task   `json:"task"`
	Escrow *models.Escrow `json:"escrow"`
}

// AcceptAndPay принимает отклик и замораживает средства под задание.
// Сначала фиксируется эскроу, затем принимается отклик; если принятие
// не удалось, эскроу возвращается компенсирующим шагом. Повторяемые
// сбои принятия повторяются с задержкой.
func (s *LifecycleService) AcceptAndPay(ctx context.Context, ownerID, bidID uuid.UUID) (*AcceptOutcome, error) {
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTask(ctx, bid.TaskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}
	if task.Status != models.TaskStatusOpen {
		return nil, apperror.ErrTaskNotOpen
	}

	escrow, lockedHere, err := s.payments.LockEscrow(ctx, task.ID, bid.Amount)
	if err != nil {
		return nil, fmt.Errorf("accept and pay: lock escrow: %w", err)
	}

	var result *repository.AcceptResult
	acceptErr := s.retry.Do(ctx, func() error {
		var opErr error
		result, opErr = s.bids.AcceptBid(ctx, ownerID, bidID)
		return opErr
	})
	if acceptErr != nil {
		// Компенсация только своей заморозки. Существовавшая до вызова
		// запись принадлежит конкурирующему принятию, возвращать её —
		// значит разморозить оплату победителя.
		if lockedHere {
			if _, refundErr := s.payments.RefundEscrow(ctx, task.ID); refundErr != nil {
				logger.Log.WithError(refundErr).
					WithField("task_id", task.ID).
					Error("не удалось вернуть эскроу после сбоя принятия")
			}
		}
		return nil, acceptErr
	}

	return &AcceptOutcome{
		Bid:    result.Bid,
		Task:   result.Task,
		Escrow: escrow,
	}, nil
}

// CompleteOutcome содержит итог завершения задания с выплатой.
type CompleteOutcome struct {
	Task        *models.Task        `json:"task"`
	Payout      *models.Transaction `json:"payout,omitempty"`
	Escrow      *models.Escrow      `json:"escrow,omitempty"`
	PayoutError string              `json:"payout_error,omitempty"`
}

// CompleteAndRelease завершает задание по подтверждению заказчика:
// задание переходит в completed, исполнителю зачисляется принятая
// сумма, эскроу закрывается. Сумма выплаты берётся из принятого
// отклика, бюджет задания служит запасным значением.
func (s *LifecycleService) CompleteAndRelease(ctx context.Context, ownerID, taskID uuid.UUID) (*CompleteOutcome, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}
	if task.AssignedWorkerID == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "у задания нет назначенного исполнителя")
	}
	workerID := *task.AssignedWorkerID

	amount := task.Budget
	if task.AcceptedBidAmount != nil {
		amount = *task.AcceptedBidAmount
	}

	completed, err := s.tasks.ApproveCompletion(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	outcome := &CompleteOutcome{Task: completed}

	payout, err := s.payments.Credit(ctx, workerID, amount,
		fmt.Sprintf("Оплата за задание «%s»", task.Title), &taskID)
	if err != nil {
		// Задание уже завершено, выплату нельзя терять молча.
		logger.Log.WithError(err).
			WithField("task_id", taskID).
			WithField("worker_id", workerID).
			Error("задание завершено, но выплата не прошла")
		outcome.PayoutError = "выплата не прошла, обратитесь в поддержку"
		return outcome, nil
	}
	outcome.Payout = payout

	escrow, err := s.payments.ReleaseEscrow(ctx, taskID)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Отклик принимали без заморозки средств, закрывать нечего.
			logger.Log.WithField("task_id", taskID).Warn("завершение без эскроу")
			return outcome, nil
		}
		logger.Log.WithError(err).WithField("task_id", taskID).Error("не удалось закрыть эскроу")
		return outcome, nil
	}
	outcome.Escrow = escrow

	return outcome, nil
}
