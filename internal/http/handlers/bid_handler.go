package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdom/backend/internal/http/handlers/common"
	"github.com/taskdom/backend/internal/service"
)

// BidHandler обслуживает операции над откликами.
type BidHandler struct {
	bids      *service.BidService
	lifecycle *service.LifecycleService
}

// NewBidHandler создаёт новый хэндлер.
func NewBidHandler(bids *service.BidService, lifecycle *service.LifecycleService) *BidHandler {
	return &BidHandler{bids: bids, lifecycle: lifecycle}
}

// PlaceBid POST /tasks/:id/bids
func (h *BidHandler) PlaceBid(c *gin.Context) {
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
		Amount  float64 `json:"amount" binding:"required"`
		Message string  `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "amount и message обязательны")
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), service.PlaceBidInput{
		TaskID:   taskID,
		WorkerID: userID,
		Amount:   req.Amount,
		Message:  req.Message,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListTaskBids GET /tasks/:id/bids
func (h *BidHandler) ListTaskBids(c *gin.Context) {
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

	bids, err := h.bids.ListTaskBids(c.Request.Context(), userID, taskID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// ListMyBids GET /bids/my
func (h *BidHandler) ListMyBids(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bids, err := h.bids.ListMyBids(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// AcceptBid POST /bids/:id/accept
// Принимает отклик с заморозкой средств под задание.
func (h *BidHandler) AcceptBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outcome, err := h.lifecycle.AcceptAndPay(c.Request.Context(), userID, bidID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
