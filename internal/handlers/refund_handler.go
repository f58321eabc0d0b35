package handlers

import (
	"net/http"

	"license_ledger/internal/logger"
	"license_ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type RefundHandler struct {
	*BaseHandler
	reconciliationService services.ReconciliationService
}

func NewRefundHandler(base *BaseHandler, reconciliationService services.ReconciliationService) *RefundHandler {
	return &RefundHandler{
		BaseHandler:           base,
		reconciliationService: reconciliationService,
	}
}

func (h *RefundHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/refunds", h.RequestRefund)
}

type refundRequest struct {
	AccessCode string `json:"access_code" binding:"required" validate:"required,min=4,max=32"`
	Reason     string `json:"reason" validate:"max=500"`
}

func (h *RefundHandler) RequestRefund(c *gin.Context) {
	var req refundRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	requestID := logger.GetRequestID(c.Request.Context())
	result, err := h.reconciliationService.Refund(c.Request.Context(), h.GetDB(c), req.AccessCode, req.Reason, requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
