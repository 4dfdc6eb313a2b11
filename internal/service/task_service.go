package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/geo"
	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/metrics"
	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
	"github.com/taskdom/backend/internal/validation"
)

// TaskRepository описывает хранилище заданий.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task, equipment []models.TaskEquipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDWithEquipment(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListOpen(ctx context.Context, params repository.TaskFilterParams) (*repository.TaskListResult, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.TaskWithCount, error)
	ListByAssignedWorker(ctx context.Context, workerID uuid.UUID, status string) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Task, error)
	SetWorkerArrived(ctx context.Context, id uuid.UUID) error
	SetCompletionRequested(ctx context.Context, id uuid.UUID) error
	SetCompletionPhoto(ctx context.Context, id uuid.UUID, mediaID uuid.UUID) error
}

// WSNotifier отправляет событие пользователю и сохраняет его как уведомление.
type WSNotifier interface {
	NotifyUser(userID uuid.UUID, kind string, taskID *uuid.UUID, text string) error
}

// TaskService реализует бизнес-логику заданий.
type TaskService struct {
	repo     TaskRepository
	notifier WSNotifier
}

// NewTaskService создаёт новый сервис.
func NewTaskService(repo TaskRepository, notifier WSNotifier) *TaskService {
	return &TaskService{repo: repo, notifier: notifier}
}

// EquipmentInput описывает позицию инвентаря при создании задания.
type EquipmentInput struct {
	Name       string `json:"name"`
	ProvidedBy string `json:"provided_by"`
}

// CreateTaskInput содержит данные для создания задания.
type CreateTaskInput struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Category    string
	Budget      float64
	City        string
	Address     *string
	Latitude    float64
	Longitude   float64
	ScheduledAt time.Time
	IsInstant   bool
	Equipment   []EquipmentInput
}

// CreateTask валидирует ввод и сохраняет задание в статусе open.
func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	if err := validation.ValidateTaskTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateTaskDescription(in.Description); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidTaskCategories[in.Category]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная категория задания")
	}
	if err := validation.ValidateAmount("бюджет", in.Budget); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCity(in.City); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	scheduledAt := in.ScheduledAt
	if in.IsInstant {
		// Для срочных заданий время выполнения назначает сервер.
		scheduledAt = time.Now()
	} else {
		if err := validation.ValidateScheduledAt(scheduledAt, time.Now()); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	names := make([]string, 0, len(in.Equipment))
	for _, eq := range in.Equipment {
		names = append(names, eq.Name)
	}
	if err := validation.ValidateEquipment(names); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	equipment := make([]models.TaskEquipment, 0, len(in.Equipment))
	for _, eq := range in.Equipment {
		providedBy := eq.ProvidedBy
		if providedBy == "" {
			providedBy = models.EquipmentByCustomer
		}
		if _, ok := models.ValidEquipmentProviders[providedBy]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "некорректное значение provided_by")
		}
		equipment = append(equipment, models.TaskEquipment{
			Name:       strings.TrimSpace(eq.Name),
			ProvidedBy: providedBy,
		})
	}

	task := &models.Task{
		OwnerID:     in.OwnerID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Budget:      in.Budget,
		City:        strings.TrimSpace(in.City),
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ScheduledAt: scheduledAt,
		IsInstant:   in.IsInstant,
		Status:      models.TaskStatusOpen,
	}

	if err := s.repo.Create(ctx, task, equipment); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	task.Equipment = equipment

	metrics.TasksCreated.Inc()
	return task, nil
}

// GetTask возвращает задание с инвентарём.
func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByIDWithEquipment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListOpenTasks возвращает открытые задания по фильтру.
func (s *TaskService) ListOpenTasks(ctx context.Context, params repository.TaskFilterParams) (*repository.TaskListResult, error) {
	if params.Category != "" {
		if _, ok := models.ValidTaskCategories[params.Category]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная категория задания")
		}
	}
	return s.repo.ListOpen(ctx, params)
}

// ListMyTasks возвращает задания заказчика.
func (s *TaskService) ListMyTasks(ctx context.Context, ownerID uuid.UUID) ([]models.TaskWithCount, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListAssignedTasks возвращает задания, назначенные исполнителю.
func (s *TaskService) ListAssignedTasks(ctx context.Context, workerID uuid.UUID, status string) ([]models.Task, error) {
	if status != "" {
		if _, ok := models.ValidTaskStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус задания")
		}
	}
	return s.repo.ListByAssignedWorker(ctx, workerID, status)
}

// ListNearbyTasks возвращает открытые задания в радиусе radiusKm от точки,
// отсортированные по расстоянию. Расстояние считается по прямой.
func (s *TaskService) ListNearbyTasks(ctx context.Context, lat, lon, radiusKm float64, params repository.TaskFilterParams) ([]models.TaskWithDistance, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if radiusKm <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "радиус должен быть положительным")
	}

	// Фильтрация по радиусу выполняется в памяти, поэтому выбираем
	// страницу побольше.
	if params.Limit <= 0 {
		params.Limit = 200
	}
	result, err := s.repo.ListOpen(ctx, params)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.TaskWithDistance, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		d := geo.DistanceKm(lat, lon, task.Latitude, task.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, models.TaskWithDistance{
				TaskWithCount: task,
				DistanceKm:    d,
			})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	return nearby, nil
}

// TransitionState переводит задание в новый статус с проверкой графа переходов.
func (s *TaskService) TransitionState(ctx context.Context, taskID uuid.UUID, from, to string) (*models.Task, error) {
	if _, ok := models.ValidTaskStatuses[to]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус задания")
	}
	if !models.CanTransitionTask(from, to) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("переход из статуса %s в %s не разрешён", from, to))
	}

	task, err := s.repo.UpdateStatus(ctx, taskID, from, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			return nil, apperror.ErrTaskNotFound
		case errors.Is(err, repository.ErrInvalidTransition):
			// Статус успел измениться конкурирующим запросом.
			return nil, apperror.New(apperror.ErrCodeInvalidTransition, "статус задания уже изменился")
		default:
			return nil, err
		}
	}
	return task, nil
}

// CancelTask отменяет задание. Отменить может заказчик или назначенный
// исполнитель, пока задание открыто или выполняется.
func (s *TaskService) CancelTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}

	isOwner := task.OwnerID == actorID
	isWorker := task.AssignedWorkerID != nil && *task.AssignedWorkerID == actorID
	if !isOwner && !isWorker {
		return nil, apperror.ErrForbidden
	}

	cancelled, err := s.TransitionState(ctx, taskID, task.Status, models.TaskStatusCancelled)
	if err != nil {
		return nil, err
	}
	metrics.TasksCancelled.Inc()

	// Уведомляем вторую сторону.
	s.notifyQuietly(otherParty(task, actorID), models.NotificationTaskCancelled, taskID,
		fmt.Sprintf("Задание «%s» отменено", task.Title))

	return cancelled, nil
}

// MarkArrived отмечает прибытие исполнителя на место выполнения.
func (s *TaskService) MarkArrived(ctx context.Context, workerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.requireAssignedWorker(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetWorkerArrived(ctx, taskID); err != nil {
		return nil, err
	}
	task.WorkerArrived = true

	s.notifyQuietly(&task.OwnerID, models.NotificationWorkerArrived, taskID,
		fmt.Sprintf("Исполнитель прибыл на место по заданию «%s»", task.Title))

	return task, nil
}

// RequestCompletion отмечает, что исполнитель запросил подтверждение завершения.
func (s *TaskService) RequestCompletion(ctx context.Context, workerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.requireAssignedWorker(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetCompletionRequested(ctx, taskID); err != nil {
		return nil, err
	}
	task.CompletionRequested = true

	s.notifyQuietly(&task.OwnerID, models.NotificationCompletionRequested, taskID,
		fmt.Sprintf("Исполнитель просит подтвердить завершение задания «%s»", task.Title))

	return task, nil
}

// AttachCompletionPhoto привязывает фото выполненной работы.
func (s *TaskService) AttachCompletionPhoto(ctx context.Context, workerID, taskID, mediaID uuid.UUID) (*models.Task, error) {
	task, err := s.requireAssignedWorker(ctx, workerID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetCompletionPhoto(ctx, taskID, mediaID); err != nil {
		return nil, err
	}
	task.CompletionPhotoID = &mediaID

	return task, nil
}

// ApproveCompletion переводит выполняемое задание в completed.
// Вызывается заказчиком, обычно через оркестратор завершения.
func (s *TaskService) ApproveCompletion(ctx context.Context, ownerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}

	completed, err := s.TransitionState(ctx, taskID, models.TaskStatusInProgress, models.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	metrics.TasksCompleted.Inc()

	if task.AssignedWorkerID != nil {
		s.notifyQuietly(task.AssignedWorkerID, models.NotificationTaskCompleted, taskID,
			fmt.Sprintf("Задание «%s» завершено, оплата скоро поступит", task.Title))
	}

	return completed, nil
}

// requireAssignedWorker проверяет, что задание выполняется и actor назначен
// его исполнителем.
func (s *TaskService) requireAssignedWorker(ctx context.Context, workerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperror.ErrTaskNotFound
		}
		return nil, err
	}
	if task.Status != models.TaskStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "задание не в работе")
	}
	if task.AssignedWorkerID == nil || *task.AssignedWorkerID != workerID {
		return nil, apperror.ErrForbidden
	}
	return task, nil
}

// notifyQuietly отправляет уведомление, не прерывая основную операцию при сбое.
func (s *TaskService) notifyQuietly(userID *uuid.UUID, kind string, taskID uuid.UUID, text string) {
	if s.notifier == nil || userID == nil {
		return
	}
	if err := s.notifier.NotifyUser(*userID, kind, &taskID, text); err != nil {
		logger.Log.WithError(err).WithField("kind", kind).Warn("не удалось отправить уведомление")
	}
}

// otherParty возвращает вторую сторону задания относительно actor.
func otherParty(task *models.Task, actorID uuid.UUID) *uuid.UUID {
	if task.OwnerID == actorID {
		return task.AssignedWorkerID
	}
	return &task.OwnerID
}
