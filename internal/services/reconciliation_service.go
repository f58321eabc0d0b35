package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"license_ledger/internal/lock"
	"license_ledger/internal/logger"
	"license_ledger/internal/models"
	"license_ledger/internal/repositories"
	"license_ledger/internal/services/payment"
	"license_ledger/pkg/apperrors"

	"gorm.io/gorm"
)

// RefundResult is returned to the caller after a successful refund.
type RefundResult struct {
	OrderNo      string    `json:"order_no"`
	RefundNo     string    `json:"refund_order_no"`
	RefundAmount string    `json:"refund_amount"`
	RefundTime   time.Time `json:"refund_time"`
}

// ResetResult carries the post-state verification snapshot for admin resets.
type ResetResult struct {
	AlreadyActive bool            `json:"already_active"`
	License       *models.License `json:"license"`
	Order         *models.Order   `json:"order"`
}

// ReconciliationService owns every refund-state transition across the order
// and license stores. All other code paths are read-only with respect to
// refund state.
type ReconciliationService interface {
	Refund(ctx context.Context, db *gorm.DB, code, reason, requestID string) (*RefundResult, error)
	ResetToActive(ctx context.Context, db *gorm.DB, orderNoOrCode, reason string) (*ResetResult, error)
}

type ReconciliationServiceImpl struct {
	orderRepo   repositories.OrderRepository
	licenseRepo repositories.LicenseRepository
	auditRepo   repositories.AuditRepository
	gateway     payment.Gateway
	locker      *lock.CodeLocker
	windowDays  int
}

func NewReconciliationService(
	orderRepo repositories.OrderRepository,
	licenseRepo repositories.LicenseRepository,
	auditRepo repositories.AuditRepository,
	gateway payment.Gateway,
	locker *lock.CodeLocker,
	windowDays int,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		orderRepo:   orderRepo,
		licenseRepo: licenseRepo,
		auditRepo:   auditRepo,
		gateway:     gateway,
		locker:      locker,
		windowDays:  windowDays,
	}
}

// NormalizeCode is the canonical access-code form: trimmed, upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Refund transitions one license/order pair to refunded.
//
// The license update is a compare-and-swap keyed on the current status, so of
// two concurrent requests for the same code exactly one wins. The order update
// that follows is best-effort: if it fails the refund is half applied, which is
// surfaced as a distinct partial-failure error and flagged in the audit trail
// for the reconciliation sweep. Every attempt, including failed ones, appends
// an audit record.
func (s *ReconciliationServiceImpl) Refund(ctx context.Context, db *gorm.DB, code, reason, requestID string) (*RefundResult, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperrors.NewBadRequestError("access_code is required")
	}

	audit := func(orderNo, amount, refundNo string, outcome models.AuditOutcome, detail string) {
		record := &models.RefundAudit{
			Code:      normalized,
			OrderNo:   orderNo,
			Amount:    amount,
			Reason:    reason,
			RequestID: requestID,
			Operation: "refund",
			Outcome:   outcome,
			RefundNo:  refundNo,
			Detail:    detail,
		}
		if err := s.auditRepo.Append(db, record); err != nil {
			logger.CtxWithError(ctx, "failed to append refund audit record", err,
				"code", normalized, "order_no", orderNo)
		}
	}

	token, acquired, err := s.locker.Acquire(ctx, normalized)
	if err != nil {
		logger.CtxWithError(ctx, "refund lock unavailable, relying on conditional update", err, "code", normalized)
	} else if !acquired {
		audit("", "", "", models.AuditOutcomeConflict, "concurrent refund in progress")
		return nil, apperrors.ErrConflict(nil, "refund", "A refund for this access code is already in progress")
	} else {
		defer func() {
			if err := s.locker.Release(ctx, normalized, token); err != nil {
				logger.CtxWithError(ctx, "failed to release refund lock", err, "code", normalized)
			}
		}()
	}

	licenses, err := s.licenseRepo.FindByCode(db, normalized)
	if err != nil {
		audit("", "", "", models.AuditOutcomeFailed, "license lookup failed")
		return nil, apperrors.InternalError(err)
	}
	switch {
	case len(licenses) == 0:
		audit("", "", "", models.AuditOutcomeFailed, "access code not found")
		return nil, apperrors.ErrLicenseNotFound
	case len(licenses) > 1:
		// Never silently pick the first match; duplicates are a data defect.
		logger.CtxError(ctx, "duplicate license rows for access code",
			"code", normalized, "count", len(licenses))
		audit("", "", "", models.AuditOutcomeFailed, "duplicate license rows")
		return nil, apperrors.ErrDuplicateLicense
	}
	license := licenses[0]

	if license.Status == models.LicenseStatusRefunded {
		audit(license.OrderNo, "", "", models.AuditOutcomeConflict, "already refunded")
		return nil, apperrors.ErrAlreadyRefunded
	}

	orders, err := s.orderRepo.FindByOrderNo(db, license.OrderNo)
	if err != nil {
		audit(license.OrderNo, "", "", models.AuditOutcomeFailed, "order lookup failed")
		return nil, apperrors.InternalError(err)
	}
	switch {
	case len(orders) == 0:
		audit(license.OrderNo, "", "", models.AuditOutcomeFailed, "linked order missing")
		return nil, apperrors.ErrOrderNotFound
	case len(orders) > 1:
		logger.CtxError(ctx, "duplicate order rows for order number",
			"order_no", license.OrderNo, "count", len(orders))
		audit(license.OrderNo, "", "", models.AuditOutcomeFailed, "duplicate order rows")
		return nil, apperrors.ErrDuplicateLicense
	}
	order := orders[0]

	now := time.Now()
	if !IsWithinRefundWindow(license.PurchaseDate, now, s.windowDays) {
		audit(order.OrderNo, order.Amount, "", models.AuditOutcomeFailed, "refund window expired")
		return nil, apperrors.ErrRefundWindowExpired
	}

	// Partial refunds are unsupported: always the full order amount.
	refundNo := newRefundNo()

	won, err := s.licenseRepo.MarkRefunded(db, normalized, refundNo, now)
	if err != nil {
		audit(order.OrderNo, order.Amount, refundNo, models.AuditOutcomeFailed, "license update failed")
		return nil, apperrors.InternalError(err)
	}
	if !won {
		// Lost the compare-and-swap to a concurrent request.
		audit(order.OrderNo, order.Amount, refundNo, models.AuditOutcomeConflict, "lost status transition")
		return nil, apperrors.ErrAlreadyRefunded
	}

	if err := s.gateway.Refund(ctx, order.OrderNo, refundNo, order.Amount); err != nil {
		// The channel rejected the refund: roll the license back so the pair
		// stays consistent, and record the failed attempt.
		if resetErr := s.licenseRepo.ResetToActive(db, normalized); resetErr != nil {
			logger.CtxWithError(ctx, "failed to roll back license after gateway refusal", resetErr,
				"code", normalized, "order_no", order.OrderNo)
		}
		audit(order.OrderNo, order.Amount, refundNo, models.AuditOutcomeFailed, "gateway refund failed: "+err.Error())
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "payment",
			"Payment provider refused the refund", apperrors.ErrGatewayUnavailable.HTTPCode)
	}

	if err := s.orderRepo.MarkRefunded(db, order.OrderNo, order.Amount, refundNo, now); err != nil {
		// License is refunded, order is not: a known gap, surfaced loudly
		// instead of swallowed. The sweep picks this pair up from the audit
		// trail and the state mismatch.
		logger.CtxError(ctx, "refund partially applied",
			"code", normalized, "order_no", order.OrderNo, "refund_no", refundNo, "error", err.Error())
		audit(order.OrderNo, order.Amount, refundNo, models.AuditOutcomePartial, "order update failed: "+err.Error())
		return nil, apperrors.ErrPartialFailure(err)
	}

	audit(order.OrderNo, order.Amount, refundNo, models.AuditOutcomeSuccess, "")
	logger.CtxInfo(ctx, "refund completed",
		"code", normalized, "order_no", order.OrderNo, "refund_no", refundNo, "amount", order.Amount)

	return &RefundResult{
		OrderNo:      order.OrderNo,
		RefundNo:     refundNo,
		RefundAmount: order.Amount,
		RefundTime:   now,
	}, nil
}

// ResetToActive clears refund state on both stores. Used to repair erroneous
// refunds; idempotent, so re-running on an already-active pair is a no-op
// success rather than an error.
func (s *ReconciliationServiceImpl) ResetToActive(ctx context.Context, db *gorm.DB, orderNoOrCode, reason string) (*ResetResult, error) {
	ref := strings.TrimSpace(orderNoOrCode)
	if ref == "" {
		return nil, apperrors.NewBadRequestError("order_no or access_code is required")
	}

	license, err := s.resolveLicense(db, ref)
	if err != nil {
		return nil, err
	}
	alreadyActive := license.Status == models.LicenseStatusActive

	if err := s.licenseRepo.ResetToActive(db, license.Code); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.orderRepo.ResetRefund(db, license.OrderNo); err != nil {
		// Same dual-write gap as refund, in the other direction.
		s.appendResetAudit(ctx, db, license, reason, models.AuditOutcomePartial, "order reset failed: "+err.Error())
		return nil, apperrors.ErrPartialFailure(err)
	}

	detail := ""
	if alreadyActive {
		detail = "already active"
	}
	s.appendResetAudit(ctx, db, license, reason, models.AuditOutcomeSuccess, detail)

	// Post-state verification snapshot: read both rows back.
	result := &ResetResult{AlreadyActive: alreadyActive}
	if fresh, err := s.licenseRepo.FindByCode(db, license.Code); err == nil && len(fresh) == 1 {
		result.License = &fresh[0]
	}
	if fresh, err := s.orderRepo.FindByOrderNo(db, license.OrderNo); err == nil && len(fresh) == 1 {
		result.Order = &fresh[0]
	}

	logger.CtxInfo(ctx, "refund state reset",
		"code", license.Code, "order_no", license.OrderNo, "already_active", alreadyActive)
	return result, nil
}

// resolveLicense accepts either a normalized access code or an order number.
func (s *ReconciliationServiceImpl) resolveLicense(db *gorm.DB, ref string) (*models.License, error) {
	licenses, err := s.licenseRepo.FindByCode(db, NormalizeCode(ref))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if len(licenses) == 0 {
		licenses, err = s.licenseRepo.FindByOrderNo(db, ref)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
	}
	switch {
	case len(licenses) == 0:
		return nil, apperrors.ErrLicenseNotFound
	case len(licenses) > 1:
		return nil, apperrors.ErrDuplicateLicense
	}
	return &licenses[0], nil
}

func (s *ReconciliationServiceImpl) appendResetAudit(ctx context.Context, db *gorm.DB, license *models.License, reason string, outcome models.AuditOutcome, detail string) {
	record := &models.RefundAudit{
		Code:      license.Code,
		OrderNo:   license.OrderNo,
		Reason:    reason,
		RequestID: logger.GetRequestID(ctx),
		Operation: "reset",
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := s.auditRepo.Append(db, record); err != nil {
		logger.CtxWithError(ctx, "failed to append reset audit record", err,
			"code", license.Code, "order_no", license.OrderNo)
	}
}

func newRefundNo() string {
	return "RF" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:22]
}
