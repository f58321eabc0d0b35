package handlers

import (
	"net/http"
	"time"

	"license_ledger/internal/auth"
	"license_ledger/internal/config"
	"license_ledger/internal/middleware"
	"license_ledger/internal/repositories"
	"license_ledger/internal/services"
	"license_ledger/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler exposes the administrative repair surface: reset of erroneous
// refunds and inspection of an order with its license and audit trail.
type AdminHandler struct {
	*BaseHandler
	reconciliationService services.ReconciliationService
	orderRepo             repositories.OrderRepository
	licenseRepo           repositories.LicenseRepository
	auditRepo             repositories.AuditRepository
}

func NewAdminHandler(
	base *BaseHandler,
	reconciliationService services.ReconciliationService,
	orderRepo repositories.OrderRepository,
	licenseRepo repositories.LicenseRepository,
	auditRepo repositories.AuditRepository,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:           base,
		reconciliationService: reconciliationService,
		orderRepo:             orderRepo,
		licenseRepo:           licenseRepo,
		auditRepo:             auditRepo,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/admin/auth/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(auth.RoleAdmin))
	{
		admin.POST("/reset", h.ResetRefundState)
		admin.GET("/orders/:orderNo", h.InspectOrder)
	}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	cfg := config.GetConfig()
	if cfg.Admin.PasswordHash == "" || req.Login != cfg.Admin.Login {
		h.HandleServiceError(c, apperrors.ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.Admin.PasswordHash), []byte(req.Password)); err != nil {
		h.HandleServiceError(c, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(cfg.JWT.Secret, req.Login, auth.RoleAdmin,
		time.Duration(cfg.JWT.TTL)*time.Minute)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": token,
	})
}

type resetRequest struct {
	OrderNo    string `json:"order_no" validate:"max=64"`
	AccessCode string `json:"access_code" validate:"max=32"`
	Reason     string `json:"reason" binding:"required" validate:"required,max=500"`
}

func (h *AdminHandler) ResetRefundState(c *gin.Context) {
	var req resetRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	ref := req.AccessCode
	if ref == "" {
		ref = req.OrderNo
	}
	if ref == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Either order_no or access_code is required"))
		return
	}

	result, err := h.reconciliationService.ResetToActive(c.Request.Context(), h.GetDB(c), ref, req.Reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// InspectOrder returns the order, its license and the full audit trail in one
// snapshot, so support can see the pair's consistency at a glance.
func (h *AdminHandler) InspectOrder(c *gin.Context) {
	orderNo := c.Param("orderNo")
	db := h.GetDB(c)

	orders, err := h.orderRepo.FindByOrderNo(db, orderNo)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if len(orders) == 0 {
		h.HandleServiceError(c, apperrors.ErrOrderNotFound)
		return
	}

	licenses, err := h.licenseRepo.FindByOrderNo(db, orderNo)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	audits, err := h.auditRepo.ListByOrderNo(db, orderNo)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"order":    orders[0],
		"licenses": licenses,
		"audits":   audits,
	})
}
