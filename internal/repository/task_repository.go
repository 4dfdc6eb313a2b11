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

// TaskRepository отвечает за работу с заданиями.
type TaskRepository struct {
	db *sqlx.DB
}

// Ошибки уровня репозитория.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// NewTaskRepository создаёт новый экземпляр.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, owner_id, title, description, category, budget, city, address,
	       latitude, longitude, scheduled_at, is_instant, status, assigned_worker_id,
	       accepted_bid_amount, worker_arrived, completion_requested, completion_photo_id,
	       created_at, updated_at`

// GetByID возвращает задание по идентификатору.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("task repository: get by id %w", err)
	}
	return &task, nil
}

// GetByIDWithEquipment возвращает задание вместе со списком инвентаря.
func (r *TaskRepository) GetByIDWithEquipment(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var equipment []models.TaskEquipment
	query := `SELECT id, task_id, name, provided_by FROM task_equipment WHERE task_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &equipment, query, id); err != nil {
		return nil, fmt.Errorf("task repository: get equipment %w", err)
	}
	task.Equipment = equipment

	return task, nil
}

// Create сохраняет задание и связанный инвентарь в одной транзакции.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task, equipment []models.TaskEquipment) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("task repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO tasks (owner_id, title, description, category, budget, city, address,
		                   latitude, longitude, scheduled_at, is_instant, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	if err = tx.QueryRowxContext(
		ctx,
		query,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Category,
		task.Budget,
		task.City,
		task.Address,
		task.Latitude,
		task.Longitude,
		task.ScheduledAt,
		task.IsInstant,
		task.Status,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("task repository: insert task %w", err)
	}

	if len(equipment) > 0 {
		// Batch INSERT для инвентаря (устранение N+1)
		eqQuery := `INSERT INTO task_equipment (task_id, name, provided_by) VALUES `
		eqValues := make([]interface{}, 0, len(equipment)*3)

		for i, eq := range equipment {
			if i > 0 {
				eqQuery += ", "
			}
			eqQuery += fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
			eqValues = append(eqValues, task.ID, eq.Name, eq.ProvidedBy)
		}

		if _, err = tx.ExecContext(ctx, eqQuery, eqValues...); err != nil {
			return fmt.Errorf("task repository: batch insert equipment %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("task repository: commit %w", err)
	}

	return nil
}

// TaskFilterParams содержит параметры фильтрации и поиска заданий.
type TaskFilterParams struct {
	City        string
	Category    string
	Search      string
	InstantOnly bool
	SortBy      string // "date", "budget"
	SortOrder   string // "asc", "desc"
	Limit       int
	Offset      int
}

// TaskListResult содержит список заданий и метаданные пагинации.
type TaskListResult struct {
	Tasks   []models.TaskWithCount
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// ListOpen возвращает открытые задания с пагинацией, фильтрацией и поиском.
// Для каждого задания подсчитывается количество откликов.
func (r *TaskRepository) ListOpen(ctx context.Context, params TaskFilterParams) (*TaskListResult, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM tasks t
		WHERE t.status = 'open'
	`

	query := `
		SELECT t.*,
			COALESCE(bid_counts.count, 0) AS bids_count
		FROM tasks t
		LEFT JOIN (
			SELECT task_id, COUNT(*) AS count
			FROM bids
			GROUP BY task_id
		) bid_counts ON t.id = bid_counts.task_id
		WHERE t.status = 'open'
	`
	args := []interface{}{}
	argIndex := 1

	if params.City != "" {
		clause := fmt.Sprintf(" AND t.city ILIKE $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, params.City)
		argIndex++
	}

	if params.Category != "" {
		clause := fmt.Sprintf(" AND t.category = $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, params.Category)
		argIndex++
	}

	if params.Search != "" {
		clause := fmt.Sprintf(" AND (t.title ILIKE $%d OR t.description ILIKE $%d)", argIndex, argIndex)
		query += clause
		countQuery += clause
		args = append(args, "%"+params.Search+"%")
		argIndex++
	}

	if params.InstantOnly {
		clause := " AND t.is_instant = TRUE"
		query += clause
		countQuery += clause
	}

	sortOrder := params.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	switch params.SortBy {
	case "budget":
		query += fmt.Sprintf(" ORDER BY t.budget %s", sortOrder)
	default: // "date"
		query += fmt.Sprintf(" ORDER BY t.created_at %s", sortOrder)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("task repository: count %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	var tasks []models.TaskWithCount
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("task repository: list %w", err)
	}

	return &TaskListResult{
		Tasks:   tasks,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(tasks) < total,
	}, nil
}

// ListByOwner возвращает задания заказчика, новые первыми.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.TaskWithCount, error) {
	query := `
		SELECT t.*,
			COALESCE(bid_counts.count, 0) AS bids_count
		FROM tasks t
		LEFT JOIN (
			SELECT task_id, COUNT(*) AS count
			FROM bids
			GROUP BY task_id
		) bid_counts ON t.id = bid_counts.task_id
		WHERE t.owner_id = $1
		ORDER BY t.created_at DESC
	`
	var tasks []models.TaskWithCount
	if err := r.db.SelectContext(ctx, &tasks, query, ownerID); err != nil {
		return nil, fmt.Errorf("task repository: list by owner %w", err)
	}
	return tasks, nil
}

// ListByAssignedWorker возвращает задания, назначенные исполнителю.
// Если status пуст, возвращаются задания во всех статусах.
func (r *TaskRepository) ListByAssignedWorker(ctx context.Context, workerID uuid.UUID, status string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_worker_id = $1`
	args := []interface{}{workerID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_at`

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("task repository: list by worker %w", err)
	}
	return tasks, nil
}

// UpdateStatus атомарно переводит задание из статуса from в статус to.
// Если задание уже не в статусе from, возвращает ErrInvalidTransition:
// конкурирующее обновление успело раньше.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Task, error) {
	var task models.Task
	query := `
		UPDATE tasks
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + taskColumns

	err := r.db.GetContext(ctx, &task, query, id, from, to)
	if err == nil {
		return &task, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task repository: update status %w", err)
	}

	// Различаем "задания нет" и "статус уже изменился".
	var current string
	if err := r.db.GetContext(ctx, &current, `SELECT status FROM tasks WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("task repository: check status %w", err)
	}
	return nil, ErrInvalidTransition
}

// SetWorkerArrived отмечает прибытие исполнителя на место.
func (r *TaskRepository) SetWorkerArrived(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "worker_arrived")
}

// SetCompletionRequested отмечает запрос подтверждения завершения.
func (r *TaskRepository) SetCompletionRequested(ctx context.Context, id uuid.UUID) error {
	return r.setFlag(ctx, id, "completion_requested")
}

func (r *TaskRepository) setFlag(ctx context.Context, id uuid.UUID, column string) error {
	query := fmt.Sprintf(`UPDATE tasks SET %s = TRUE, updated_at = NOW() WHERE id = $1`, column)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("task repository: set %s %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SetCompletionPhoto привязывает фото выполненной работы к заданию.
func (r *TaskRepository) SetCompletionPhoto(ctx context.Context, id uuid.UUID, mediaID uuid.UUID) error {
	query := `UPDATE tasks SET completion_photo_id = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, mediaID)
	if err != nil {
		return fmt.Errorf("task repository: set completion photo %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
