package services

import (
	"context"
	"time"

	"license_ledger/internal/email"
	"license_ledger/internal/logger"
	"license_ledger/internal/models"
	"license_ledger/internal/repositories"
	"license_ledger/internal/services/payment"
	"license_ledger/pkg/apperrors"

	"gorm.io/gorm"
)

// CallbackResult is the response payload for a processed payment callback.
type CallbackResult struct {
	OrderNo    string `json:"order_no"`
	AccessCode string `json:"access_code"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// CallbackService handles inbound Z-Pay payment notifications: signature
// verification, order creation and license issuance.
type CallbackService interface {
	HandlePayment(ctx context.Context, db *gorm.DB, params map[string]string) (*CallbackResult, error)
}

type CallbackServiceImpl struct {
	orderRepo    repositories.OrderRepository
	licenseRepo  repositories.LicenseRepository
	issuance     IssuanceService
	emailService email.Provider

	merchantID   string
	key          string
	productPrice string // empty disables the exact-amount check
}

func NewCallbackService(
	orderRepo repositories.OrderRepository,
	licenseRepo repositories.LicenseRepository,
	issuance IssuanceService,
	emailService email.Provider,
	merchantID, key, productPrice string,
) *CallbackServiceImpl {
	return &CallbackServiceImpl{
		orderRepo:    orderRepo,
		licenseRepo:  licenseRepo,
		issuance:     issuance,
		emailService: emailService,
		merchantID:   merchantID,
		key:          key,
		productPrice: productPrice,
	}
}

// pick returns the first non-empty value among aliases. The channel uses
// Alipay field names, older integrations the generic ones.
func pick(params map[string]string, names ...string) string {
	for _, n := range names {
		if v := params[n]; v != "" {
			return v
		}
	}
	return ""
}

// HandlePayment verifies and applies one payment notification. Repeated
// notifications for an already-paid order return the existing access code, so
// the channel's retry storms are harmless.
func (s *CallbackServiceImpl) HandlePayment(ctx context.Context, db *gorm.DB, params map[string]string) (*CallbackResult, error) {
	if !payment.Verify(params, params["sign"], s.key) {
		// Full parameter dump for forensics. The shared secret is never part
		// of the parameter set, so nothing sensitive is logged here.
		logger.CtxWarn(ctx, "callback signature verification failed", "params", params)
		return nil, apperrors.ErrSignatureInvalid
	}

	merchantID := pick(params, "pid", "merchant_id")
	orderNo := pick(params, "out_trade_no", "order_id")
	amount := pick(params, "money", "amount")
	status := pick(params, "trade_status", "status")
	transactionID := params["transaction_id"]
	buyerEmail := params["email"]

	if merchantID != s.merchantID {
		logger.CtxWarn(ctx, "callback merchant mismatch", "pid", merchantID)
		return nil, apperrors.ErrSignatureInvalid
	}
	if orderNo == "" || amount == "" {
		return nil, apperrors.NewBadRequestError("out_trade_no and money are required")
	}
	if status != "TRADE_SUCCESS" && status != "success" {
		return nil, apperrors.NewBadRequestError("unsupported trade status: " + status)
	}
	// Exact string comparison; no numeric parsing.
	if s.productPrice != "" && amount != s.productPrice {
		logger.CtxWarn(ctx, "callback amount mismatch", "order_no", orderNo, "amount", amount)
		return nil, apperrors.ErrAmountMismatch
	}

	// Idempotency: a repeated callback for a paid order re-reports success.
	existing, err := s.orderRepo.FindByOrderNo(db, orderNo)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if len(existing) > 0 {
		if existing[0].Status != models.OrderStatusPaid {
			return nil, apperrors.ErrConflict(nil, "order", "Order exists but is not paid")
		}
		licenses, err := s.licenseRepo.FindByOrderNo(db, orderNo)
		if err != nil || len(licenses) != 1 {
			return nil, apperrors.InternalError(err)
		}
		logger.CtxInfo(ctx, "duplicate payment callback", "order_no", orderNo)
		return &CallbackResult{OrderNo: orderNo, AccessCode: licenses[0].Code, Duplicate: true}, nil
	}

	// Order and license are created in one transaction: a half-issued
	// purchase must not exist.
	now := time.Now()
	var license *models.License
	err = db.Transaction(func(tx *gorm.DB) error {
		order := &models.Order{
			OrderNo:       orderNo,
			TransactionID: transactionID,
			Amount:        amount,
			Status:        models.OrderStatusPaid,
			BuyerEmail:    buyerEmail,
			PaidAt:        &now,
			RefundStatus:  models.RefundStatusNone,
		}
		if err := s.orderRepo.Create(tx, order); err != nil {
			return err
		}
		issued, err := s.issuance.Issue(ctx, tx, orderNo, nil, now)
		if err != nil {
			return err
		}
		license = issued
		return nil
	})
	if err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "payment processed", "order_no", orderNo, "amount", amount)

	if buyerEmail != "" && s.emailService != nil {
		if err := s.emailService.SendAccessCode(buyerEmail, license.Code, orderNo); err != nil {
			// Delivery failure must not fail the callback; the channel would
			// keep retrying an already-processed payment.
			logger.CtxWithError(ctx, "failed to send access code email", err, "order_no", orderNo)
		}
	}

	return &CallbackResult{OrderNo: orderNo, AccessCode: license.Code}, nil
}
