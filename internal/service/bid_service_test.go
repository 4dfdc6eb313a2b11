package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
)

type mockBidRepo struct {
	mock.Mock
}

func (m *mockBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *mockBidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) Accept(ctx context.Context, bidID uuid.UUID) (*repository.AcceptResult, error) {
	args := m.Called(ctx, bidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AcceptResult), args.Error(1)
}

type mockTaskGetter struct {
	mock.Mock
}

func (m *mockTaskGetter) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func TestBidService_PlaceBid_Success(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	notifier := &fakeNotifier{}
	svc := NewBidService(repo, tasks, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	workerID := uuid.New()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Title:   "Покраска забора",
		Status:  models.TaskStatusOpen,
	}, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	bid, err := svc.PlaceBid(ctx, PlaceBidInput{
		TaskID:   taskID,
		WorkerID: workerID,
		Amount:   2500,
		Message:  "Сделаю завтра утром",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
	assert.Equal(t, workerID, bid.WorkerID)

	events := notifier.sent()
	assert.Len(t, events, 1)
	assert.Equal(t, ownerID, events[0].UserID)
	assert.Equal(t, models.NotificationBidPlaced, events[0].Kind)
}

func TestBidService_PlaceBid_OwnTaskForbidden(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Status:  models.TaskStatusOpen,
	}, nil)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		TaskID:   taskID,
		WorkerID: ownerID,
		Amount:   1000,
		Message:  "возьмусь сам",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "собственное")
	repo.AssertNotCalled(t, "Create")
}

func TestBidService_PlaceBid_TaskNotOpen(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: uuid.New(),
		Status:  models.TaskStatusInProgress,
	}, nil)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		TaskID:   taskID,
		WorkerID: uuid.New(),
		Amount:   1000,
		Message:  "готов помочь",
	})
	assert.ErrorIs(t, err, apperror.ErrTaskNotOpen)
	repo.AssertNotCalled(t, "Create")
}

func TestBidService_PlaceBid_Duplicate(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: uuid.New(),
		Status:  models.TaskStatusOpen,
	}, nil)
	repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateBid)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		TaskID:   taskID,
		WorkerID: uuid.New(),
		Amount:   1000,
		Message:  "готов помочь",
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateBid)
}

func TestBidService_PlaceBid_InvalidAmount(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)

	_, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		TaskID:   uuid.New(),
		WorkerID: uuid.New(),
		Amount:   0,
		Message:  "бесплатно",
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	tasks.AssertNotCalled(t, "GetByID")
}

func TestBidService_ListTaskBids_OwnerSeesAll(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{ID: taskID, OwnerID: ownerID}, nil)
	repo.On("ListByTask", ctx, taskID).Return([]models.Bid{
		{ID: uuid.New(), WorkerID: uuid.New()},
		{ID: uuid.New(), WorkerID: uuid.New()},
	}, nil)

	bids, err := svc.ListTaskBids(ctx, ownerID, taskID)
	assert.NoError(t, err)
	assert.Len(t, bids, 2)
}

func TestBidService_ListTaskBids_WorkerSeesOnlyOwn(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	workerID := uuid.New()
	taskID := uuid.New()

	tasks.On("GetByID", ctx, taskID).Return(&models.Task{ID: taskID, OwnerID: uuid.New()}, nil)
	repo.On("ListByTask", ctx, taskID).Return([]models.Bid{
		{ID: uuid.New(), WorkerID: workerID},
		{ID: uuid.New(), WorkerID: uuid.New()},
	}, nil)

	bids, err := svc.ListTaskBids(ctx, workerID, taskID)
	assert.NoError(t, err)
	assert.Len(t, bids, 1)
	assert.Equal(t, workerID, bids[0].WorkerID)
}

func TestBidService_AcceptBid_Success(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	notifier := &fakeNotifier{}
	svc := NewBidService(repo, tasks, notifier)
	ctx := context.Background()

	ownerID := uuid.New()
	winnerID := uuid.New()
	loserID := uuid.New()
	taskID := uuid.New()
	bidID := uuid.New()

	bid := &models.Bid{ID: bidID, TaskID: taskID, WorkerID: winnerID, Amount: 2000}
	repo.On("GetByID", ctx, bidID).Return(bid, nil)
	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Title:   "Переезд",
		Status:  models.TaskStatusOpen,
	}, nil)

	amount := 2000.0
	repo.On("Accept", ctx, bidID).Return(&repository.AcceptResult{
		Bid: &models.Bid{ID: bidID, TaskID: taskID, WorkerID: winnerID, Status: models.BidStatusAccepted},
		Task: &models.Task{
			ID:                taskID,
			Title:             "Переезд",
			Status:            models.TaskStatusInProgress,
			AssignedWorkerID:  &winnerID,
			AcceptedBidAmount: &amount,
		},
		RejectedWorkerIDs: []uuid.UUID{loserID},
	}, nil)

	result, err := svc.AcceptBid(ctx, ownerID, bidID)
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusAccepted, result.Bid.Status)
	assert.Equal(t, models.TaskStatusInProgress, result.Task.Status)

	events := notifier.sent()
	assert.Len(t, events, 2)
	assert.Equal(t, winnerID, events[0].UserID)
	assert.Equal(t, models.NotificationBidAccepted, events[0].Kind)
	assert.Equal(t, loserID, events[1].UserID)
	assert.Equal(t, models.NotificationBidRejected, events[1].Kind)
}

func TestBidService_AcceptBid_NotOwner(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	taskID := uuid.New()
	bidID := uuid.New()

	repo.On("GetByID", ctx, bidID).Return(&models.Bid{ID: bidID, TaskID: taskID}, nil)
	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: uuid.New(),
		Status:  models.TaskStatusOpen,
	}, nil)

	_, err := svc.AcceptBid(ctx, uuid.New(), bidID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "Accept")
}

func TestBidService_AcceptBid_TaskAlreadyTaken(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	taskID := uuid.New()
	bidID := uuid.New()

	repo.On("GetByID", ctx, bidID).Return(&models.Bid{ID: bidID, TaskID: taskID}, nil)
	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Status:  models.TaskStatusInProgress,
	}, nil)

	_, err := svc.AcceptBid(ctx, ownerID, bidID)
	assert.ErrorIs(t, err, apperror.ErrTaskNotOpen)
	repo.AssertNotCalled(t, "Accept")
}

func TestBidService_AcceptBid_LostRace(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	taskID := uuid.New()
	bidID := uuid.New()

	repo.On("GetByID", ctx, bidID).Return(&models.Bid{ID: bidID, TaskID: taskID}, nil)
	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Status:  models.TaskStatusOpen,
	}, nil)
	// Конкурирующее принятие выиграло гонку внутри транзакции.
	repo.On("Accept", ctx, bidID).Return(nil, repository.ErrTaskNotOpen)

	_, err := svc.AcceptBid(ctx, ownerID, bidID)
	assert.ErrorIs(t, err, apperror.ErrTaskNotOpen)
}

func TestBidService_AcceptBid_CommitFailedIsRetryable(t *testing.T) {
	repo := new(mockBidRepo)
	tasks := new(mockTaskGetter)
	svc := NewBidService(repo, tasks, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	taskID := uuid.New()
	bidID := uuid.New()

	repo.On("GetByID", ctx, bidID).Return(&models.Bid{ID: bidID, TaskID: taskID}, nil)
	tasks.On("GetByID", ctx, taskID).Return(&models.Task{
		ID:      taskID,
		OwnerID: ownerID,
		Status:  models.TaskStatusOpen,
	}, nil)
	repo.On("Accept", ctx, bidID).Return(nil, repository.ErrCommitFailed)

	_, err := svc.AcceptBid(ctx, ownerID, bidID)
	assert.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}
