package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskdom/backend/internal/http/handlers/common"
	"github.com/taskdom/backend/internal/repository"
	"github.com/taskdom/backend/internal/service"
)

// TaskHandler обслуживает операции над заданиями.
type TaskHandler struct {
	tasks     *service.TaskService
	lifecycle *service.LifecycleService
}

// NewTaskHandler создаёт новый хэндлер.
func NewTaskHandler(tasks *service.TaskService, lifecycle *service.LifecycleService) *TaskHandler {
	return &TaskHandler{tasks: tasks, lifecycle: lifecycle}
}

// CreateTask POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title       string                   `json:"title" binding:"required"`
		Description string                   `json:"description" binding:"required"`
		Category    string                   `json:"category" binding:"required"`
		Budget      float64                  `json:"budget" binding:"required"`
		City        string                   `json:"city" binding:"required"`
		Address     *string                  `json:"address"`
		Latitude    float64                  `json:"latitude"`
		Longitude   float64                  `json:"longitude"`
		ScheduledAt time.Time                `json:"scheduled_at"`
		IsInstant   bool                     `json:"is_instant"`
		Equipment   []service.EquipmentInput `json:"equipment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), service.CreateTaskInput{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Budget:      req.Budget,
		City:        req.City,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ScheduledAt: req.ScheduledAt,
		IsInstant:   req.IsInstant,
		Equipment:   req.Equipment,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListTasks GET /tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	result, err := h.tasks.ListOpenTasks(c.Request.Context(), repository.TaskFilterParams{
		City:        c.Query("city"),
		Category:    c.Query("category"),
		Search:      c.Query("search"),
		InstantOnly: c.Query("instant") == "true",
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":    result.Tasks,
		"total":    result.Total,
		"limit":    result.Limit,
		"offset":   result.Offset,
		"has_more": result.HasMore,
	})
}

// ListNearbyTasks GET /tasks/nearby?lat=..&lon=..&radius_km=..
func (h *TaskHandler) ListNearbyTasks(c *gin.Context) {
	lat := common.ParseFloatQuery(c, "lat", 0)
	lon := common.ParseFloatQuery(c, "lon", 0)
	radius := common.ParseFloatQuery(c, "radius_km", 10)

	if c.Query("lat") == "" || c.Query("lon") == "" {
		common.RespondBadRequest(c, "параметры lat и lon обязательны")
		return
	}

	tasks, err := h.tasks.ListNearbyTasks(c.Request.Context(), lat, lon, radius, repository.TaskFilterParams{
		Category:    c.Query("category"),
		InstantOnly: c.Query("instant") == "true",
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ListMyTasks GET /tasks/my
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	tasks, err := h.tasks.ListMyTasks(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ListAssignedTasks GET /tasks/assigned
func (h *TaskHandler) ListAssignedTasks(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	tasks, err := h.tasks.ListAssignedTasks(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CancelTask POST /tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.CancelTask(c.Request.Context(), userID, taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// MarkArrived POST /tasks/:id/arrived
func (h *TaskHandler) MarkArrived(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.MarkArrived(c.Request.Context(), userID, taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// RequestCompletion POST /tasks/:id/request-completion
func (h *TaskHandler) RequestCompletion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	task, err := h.tasks.RequestCompletion(c.Request.Context(), userID, taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// AttachCompletionPhoto POST /tasks/:id/completion-photo
func (h *TaskHandler) AttachCompletionPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		MediaID string `json:"media_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "media_id обязателен")
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		common.RespondBadRequest(c, "media_id должен быть валидным UUID")
		return
	}

	task, err := h.tasks.AttachCompletionPhoto(c.Request.Context(), userID, taskID, mediaID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ApproveCompletion POST /tasks/:id/approve-completion
// Завершает задание и запускает выплату исполнителю.
func (h *TaskHandler) ApproveCompletion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	taskID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outcome, err := h.lifecycle.CompleteAndRelease(c.Request.Context(), userID, taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
