package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/metrics"
	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
	"github.com/taskdom/backend/internal/validation"
)

// BidRepository описывает хранилище откликов.
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Bid, error)
	Accept(ctx context.Context, bidID uuid.UUID) (*repository.AcceptResult, error)
}

// TaskGetter возвращает задание по идентификатору.
type TaskGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// BidService реализует бизнес-логику откликов.
type BidService struct {
	repo     BidRepository
	tasks    TaskGetter
	notifier WSNotifier
}

// NewBidService создаёт новый сервис.
func NewBidService(repo BidRepository, tasks TaskGetter, notifier WSNotifier) *BidService {
	return &BidService{repo: repo, tasks: tasks, notifier: notifier}
}

// PlaceBidInput содержит данные для размещения отклика.
type PlaceBidInput struct {
	TaskID   uuid.UUID
	WorkerID uuid.UUID
	Amount   float64
	Message  string
}

// PlaceBid размещает отклик исполнителя на открытое задание.
func (s *BidService) PlaceBid(ctx context.Context, in PlaceBidInput) (*models.Bid, error) {
	if err := validation.ValidateAmount("сумма отклика", in.Amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBidMessage(in.Message); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	task, err := s.tasks.GetByID(ctx, in.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}

	if task.Status != models.TaskStatusOpen {
		return nil, apperror.ErrTaskNotOpen
	}
	if task.OwnerID == in.WorkerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственное задание")
	}

	bid := &models.Bid{
		TaskID:   in.TaskID,
		WorkerID: in.WorkerID,
		Amount:   in.Amount,
		Message:  strings.TrimSpace(in.Message),
		Status:   models.BidStatusPending,
	}

	if err := s.repo.Create(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrDuplicateBid) {
			return nil, apperror.ErrDuplicateBid
		}
		return nil, fmt.Errorf("place bid: %w", err)
	}

	metrics.BidsPlaced.Inc()

	if s.notifier != nil {
		if err := s.notifier.NotifyUser(task.OwnerID, models.NotificationBidPlaced, &task.ID,
			fmt.Sprintf("Новый отклик на задание «%s»: %.2f ₽", task.Title, bid.Amount)); err != nil {
			logger.Log.WithError(err).Warn("не удалось отправить уведомление о новом отклике")
		}
	}

	return bid, nil
}

// GetBid возвращает отклик по идентификатору.
func (s *BidService) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}
	return bid, nil
}

// ListTaskBids возвращает отклики на задание. Полный список видит
// только заказчик, исполнители видят лишь собственные отклики.
func (s *BidService) ListTaskBids(ctx context.Context, actorID, taskID uuid.UUID) ([]models.Bid, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}

	bids, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.OwnerID == actorID {
		return bids, nil
	}

	own := make([]models.Bid, 0, 1)
	for _, bid := range bids {
		if bid.WorkerID == actorID {
			own = append(own, bid)
		}
	}
	return own, nil
}

// ListMyBids возвращает отклики исполнителя.
func (s *BidService) ListMyBids(ctx context.Context, workerID uuid.UUID) ([]models.Bid, error) {
	return s.repo.ListByWorker(ctx, workerID)
}

// AcceptBid принимает отклик от имени заказчика. Конкурирующие принятия
// сериализуются в хранилище, проигравший запрос получает ErrTaskNotOpen.
func (s *BidService) AcceptBid(ctx context.Context, ownerID, bidID uuid.UUID) (*repository.AcceptResult, error) {
	bid, err := s.repo.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, bid.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}
	if task.Status != models.TaskStatusOpen {
		return nil, apperror.ErrTaskNotOpen
	}

	result, err := s.repo.Accept(ctx, bidID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBidNotFound):
			return nil, apperror.ErrBidNotFound
		case errors.Is(err, repository.ErrTaskNotFound):
			return nil, apperror.ErrTaskNotFound
		case errors.Is(err, repository.ErrTaskNotOpen):
			return nil, apperror.ErrTaskNotOpen
		case errors.Is(err, repository.ErrCommitFailed):
			return nil, apperror.Wrap(err, apperror.ErrCodeCommitFailed, "не удалось зафиксировать принятие отклика")
		default:
			return nil, fmt.Errorf("accept bid: %w", err)
		}
	}

	metrics.BidsAccepted.Inc()

	s.notifyAcceptOutcome(result)

	return result, nil
}

// notifyAcceptOutcome рассылает уведомления победителю и отклонённым исполнителям.
func (s *BidService) notifyAcceptOutcome(result *repository.AcceptResult) {
	if s.notifier == nil {
		return
	}

	taskID := result.Task.ID
	if err := s.notifier.NotifyUser(result.Bid.WorkerID, models.NotificationBidAccepted, &taskID,
		fmt.Sprintf("Ваш отклик на задание «%s» принят", result.Task.Title)); err != nil {
		logger.Log.WithError(err).Warn("не удалось уведомить исполнителя о принятии")
	}

	for _, workerID := range result.RejectedWorkerIDs {
		if err := s.notifier.NotifyUser(workerID, models.NotificationBidRejected, &taskID,
			fmt.Sprintf("Отклик на задание «%s» отклонён: выбран другой исполнитель", result.Task.Title)); err != nil {
			logger.Log.WithError(err).Warn("не удалось уведомить исполнителя об отклонении")
		}
	}
}
