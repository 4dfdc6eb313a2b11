package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
)

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task, equipment []models.TaskEquipment) error {
	args := m.Called(ctx, task, equipment)
	return args.Error(0)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockTaskRepo) GetByIDWithEquipment(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockTaskRepo) ListOpen(ctx context.Context, params repository.TaskFilterParams) (*repository.TaskListResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TaskListResult), args.Error(1)
}

func (m *mockTaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.TaskWithCount, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]models.TaskWithCount), args.Error(1)
}

func (m *mockTaskRepo) ListByAssignedWorker(ctx context.Context, workerID uuid.UUID, status string) ([]models.Task, error) {
	args := m.Called(ctx, workerID, status)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *mockTaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Task, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *mockTaskRepo) SetWorkerArrived(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTaskRepo) SetCompletionRequested(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTaskRepo) SetCompletionPhoto(ctx context.Context, id uuid.UUID, mediaID uuid.UUID) error {
	args := m.Called(ctx, id, mediaID)
	return args.Error(0)
}

// fakeNotifier записывает отправленные уведомления.
type fakeNotifier struct {
	mu     sync.Mutex
	events []fakeEvent
}

type fakeEvent struct {
	UserID uuid.UUID
	Kind   string
	TaskID *uuid.UUID
	Text   string
}

func (f *fakeNotifier) NotifyUser(userID uuid.UUID, kind string, taskID *uuid.UUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fakeEvent{UserID: userID, Kind: kind, TaskID: taskID, Text: text})
	return nil
}

func (f *fakeNotifier) sent() []fakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeEvent(nil), f.events...)
}

func validCreateInput(ownerID uuid.UUID) CreateTaskInput {
	return CreateTaskInput{
		OwnerID:     ownerID,
		Title:       "Генеральная уборка квартиры",
		Description: "Двухкомнатная квартира, нужна влажная уборка и мытьё окон",
		Category:    models.TaskCategoryCleaning,
		Budget:      3000,
		City:        "Москва",
		Latitude:    55.7558,
		Longitude:   37.6173,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
}

func TestTaskService_CreateTask_Success(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Task"), mock.Anything).Return(nil)

	task, err := svc.CreateTask(ctx, validCreateInput(ownerID))
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusOpen, task.Status)
	assert.Equal(t, ownerID, task.OwnerID)
	repo.AssertExpectations(t)
}

func TestTaskService_CreateTask_EquipmentDefaultsToCustomer(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	var saved []models.TaskEquipment
	repo.On("Create", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = args.Get(2).([]models.TaskEquipment)
		}).
		Return(nil)

	in := validCreateInput(uuid.New())
	in.Equipment = []EquipmentInput{
		{Name: "Пылесос"},
		{Name: "Стремянка", ProvidedBy: models.EquipmentByWorker},
	}

	_, err := svc.CreateTask(ctx, in)
	assert.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Equal(t, models.EquipmentByCustomer, saved[0].ProvidedBy)
	assert.Equal(t, models.EquipmentByWorker, saved[1].ProvidedBy)
}

func TestTaskService_CreateTask_ValidationErrors(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateTaskInput)
	}{
		{"короткий заголовок", func(in *CreateTaskInput) { in.Title = "Уб" }},
		{"короткое описание", func(in *CreateTaskInput) { in.Description = "мало" }},
		{"неизвестная категория", func(in *CreateTaskInput) { in.Category = "quantum" }},
		{"нулевой бюджет", func(in *CreateTaskInput) { in.Budget = 0 }},
		{"отрицательный бюджет", func(in *CreateTaskInput) { in.Budget = -500 }},
		{"пустой город", func(in *CreateTaskInput) { in.City = "" }},
		{"широта вне диапазона", func(in *CreateTaskInput) { in.Latitude = 91 }},
		{"дата в прошлом", func(in *CreateTaskInput) { in.ScheduledAt = time.Now().Add(-time.Hour) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput(uuid.New())
			tc.mutate(&in)

			_, err := svc.CreateTask(ctx, in)
			assert.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
		})
	}

	repo.AssertNotCalled(t, "Create")
}

func TestTaskService_CreateTask_InstantIgnoresScheduledAt(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

	in := validCreateInput(uuid.New())
	in.IsInstant = true
	in.ScheduledAt = time.Time{}

	task, err := svc.CreateTask(ctx, in)
	assert.NoError(t, err)
	assert.False(t, task.ScheduledAt.IsZero())
}

func TestTaskService_GetTask_NotFound(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	taskID := uuid.New()

	repo.On("GetByIDWithEquipment", ctx, taskID).Return(nil, repository.ErrTaskNotFound)

	_, err := svc.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, apperror.ErrTaskNotFound)
}

func TestTaskService_TransitionState_AllowedAndDenied(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	allowed := []struct{ from, to string }{
		{models.TaskStatusOpen, models.TaskStatusInProgress},
		{models.TaskStatusOpen, models.TaskStatusCancelled},
		{models.TaskStatusInProgress, models.TaskStatusCompleted},
		{models.TaskStatusInProgress, models.TaskStatusCancelled},
	}
	for _, tr := range allowed {
		repo := new(mockTaskRepo)
		svc := NewTaskService(repo, nil)
		repo.On("UpdateStatus", ctx, taskID, tr.from, tr.to).
			Return(&models.Task{ID: taskID, Status: tr.to}, nil)

		task, err := svc.TransitionState(ctx, taskID, tr.from, tr.to)
		assert.NoError(t, err)
		assert.Equal(t, tr.to, task.Status)
	}

	denied := []struct{ from, to string }{
		{models.TaskStatusCompleted, models.TaskStatusCancelled},
		{models.TaskStatusCancelled, models.TaskStatusOpen},
		{models.TaskStatusOpen, models.TaskStatusCompleted},
		{models.TaskStatusInProgress, models.TaskStatusOpen},
	}
	for _, tr := range denied {
		repo := new(mockTaskRepo)
		svc := NewTaskService(repo, nil)

		_, err := svc.TransitionState(ctx, taskID, tr.from, tr.to)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "UpdateStatus")
	}
}

func TestTaskService_TransitionState_ConcurrentChange(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	taskID := uuid.New()

	repo.On("UpdateStatus", ctx, taskID, models.TaskStatusOpen, models.TaskStatusInProgress).
		Return(nil, repository.ErrInvalidTransition)

	_, err := svc.TransitionState(ctx, taskID, models.TaskStatusOpen, models.TaskStatusInProgress)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже изменился")
}

func TestTaskService_CancelTask_ByOwnerNotifiesWorker(t *testing.T) {
	repo := new(mockTaskRepo)
	notifier := &fakeNotifier{}
	svc := NewTaskService(repo, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{
		ID:               taskID,
		OwnerID:          ownerID,
		Title:            "Сборка шкафа",
		Status:           models.TaskStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repo.On("GetByID", ctx, taskID).Return(task, nil)
	repo.On("UpdateStatus", ctx, taskID, models.TaskStatusInProgress, models.TaskStatusCancelled).
		Return(&models.Task{ID: taskID, Status: models.TaskStatusCancelled}, nil)

	cancelled, err := svc.CancelTask(ctx, ownerID, taskID)
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, cancelled.Status)

	events := notifier.sent()
	assert.Len(t, events, 1)
	assert.Equal(t, workerID, events[0].UserID)
	assert.Equal(t, models.NotificationTaskCancelled, events[0].Kind)
}

func TestTaskService_CancelTask_StrangerForbidden(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	taskID := uuid.New()

	task := &models.Task{ID: taskID, OwnerID: uuid.New(), Status: models.TaskStatusOpen}
	repo.On("GetByID", ctx, taskID).Return(task, nil)

	_, err := svc.CancelTask(ctx, uuid.New(), taskID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestTaskService_CancelTask_CompletedRejected(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	ownerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{ID: taskID, OwnerID: ownerID, Status: models.TaskStatusCompleted}
	repo.On("GetByID", ctx, taskID).Return(task, nil)

	_, err := svc.CancelTask(ctx, ownerID, taskID)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestTaskService_MarkArrived(t *testing.T) {
	repo := new(mockTaskRepo)
	notifier := &fakeNotifier{}
	svc := NewTaskService(repo, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{
		ID:               taskID,
		OwnerID:          ownerID,
		Title:            "Мытьё окон",
		Status:           models.TaskStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repo.On("GetByID", ctx, taskID).Return(task, nil)
	repo.On("SetWorkerArrived", ctx, taskID).Return(nil)

	updated, err := svc.MarkArrived(ctx, workerID, taskID)
	assert.NoError(t, err)
	assert.True(t, updated.WorkerArrived)

	events := notifier.sent()
	assert.Len(t, events, 1)
	assert.Equal(t, ownerID, events[0].UserID)
	assert.Equal(t, models.NotificationWorkerArrived, events[0].Kind)
}

func TestTaskService_MarkArrived_NotAssignedWorker(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{
		ID:               taskID,
		OwnerID:          uuid.New(),
		Status:           models.TaskStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repo.On("GetByID", ctx, taskID).Return(task, nil)

	_, err := svc.MarkArrived(ctx, uuid.New(), taskID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestTaskService_MarkArrived_TaskNotInProgress(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{ID: taskID, OwnerID: uuid.New(), Status: models.TaskStatusOpen}
	repo.On("GetByID", ctx, taskID).Return(task, nil)

	_, err := svc.MarkArrived(ctx, workerID, taskID)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "SetWorkerArrived")
}

func TestTaskService_RequestCompletion(t *testing.T) {
	repo := new(mockTaskRepo)
	notifier := &fakeNotifier{}
	svc := NewTaskService(repo, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{
		ID:               taskID,
		OwnerID:          ownerID,
		Title:            "Выгул собаки",
		Status:           models.TaskStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repo.On("GetByID", ctx, taskID).Return(task, nil)
	repo.On("SetCompletionRequested", ctx, taskID).Return(nil)

	updated, err := svc.RequestCompletion(ctx, workerID, taskID)
	assert.NoError(t, err)
	assert.True(t, updated.CompletionRequested)

	events := notifier.sent()
	assert.Len(t, events, 1)
	assert.Equal(t, models.NotificationCompletionRequested, events[0].Kind)
}

func TestTaskService_ApproveCompletion(t *testing.T) {
	repo := new(mockTaskRepo)
	notifier := &fakeNotifier{}
	svc := NewTaskService(repo, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	workerID := uuid.New()
	taskID := uuid.New()

	task := &models.Task{
		ID:               taskID,
		OwnerID:          ownerID,
		Title:            "Ремонт крана",
		Status:           models.TaskStatusInProgress,
		AssignedWorkerID: &workerID,
	}
	repo.On("GetByID", ctx, taskID).Return(task, nil)
	repo.On("UpdateStatus", ctx, taskID, models.TaskStatusInProgress, models.TaskStatusCompleted).
		Return(&models.Task{ID: taskID, Status: models.TaskStatusCompleted}, nil)

	completed, err := svc.ApproveCompletion(ctx, ownerID, taskID)
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, completed.Status)

	events := notifier.sent()
	assert.Len(t, events, 1)
	assert.Equal(t, workerID, events[0].UserID)
	assert.Equal(t, models.NotificationTaskCompleted, events[0].Kind)
}

func TestTaskService_ApproveCompletion_NotOwner(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()
	taskID := uuid.New()

	task := &models.Task{ID: taskID, OwnerID: uuid.New(), Status: models.TaskStatusInProgress}
	repo.On("GetByID", ctx, taskID).Return(task, nil)

	_, err := svc.ApproveCompletion(ctx, uuid.New(), taskID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestTaskService_ListNearbyTasks_FiltersAndSorts(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)
	ctx := context.Background()

	// Центр Москвы.
	lat, lon := 55.7558, 37.6173

	near := models.TaskWithCount{Task: models.Task{ID: uuid.New(), Latitude: 55.76, Longitude: 37.62}}
	farther := models.TaskWithCount{Task: models.Task{ID: uuid.New(), Latitude: 55.80, Longitude: 37.70}}
	spb := models.TaskWithCount{Task: models.Task{ID: uuid.New(), Latitude: 59.93, Longitude: 30.34}}

	repo.On("ListOpen", ctx, mock.Anything).Return(&repository.TaskListResult{
		Tasks: []models.TaskWithCount{spb, farther, near},
	}, nil)

	tasks, err := svc.ListNearbyTasks(ctx, lat, lon, 15, repository.TaskFilterParams{})
	assert.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, near.ID, tasks[0].ID)
	assert.Equal(t, farther.ID, tasks[1].ID)
	assert.Less(t, tasks[0].DistanceKm, tasks[1].DistanceKm)
}

func TestTaskService_ListNearbyTasks_InvalidRadius(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)

	_, err := svc.ListNearbyTasks(context.Background(), 55.75, 37.61, 0, repository.TaskFilterParams{})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "ListOpen")
}

func TestTaskService_ListOpenTasks_UnknownCategory(t *testing.T) {
	repo := new(mockTaskRepo)
	svc := NewTaskService(repo, nil)

	_, err := svc.ListOpenTasks(context.Background(), repository.TaskFilterParams{Category: "quantum"})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "ListOpen")
}
