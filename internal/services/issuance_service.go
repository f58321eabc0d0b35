package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"license_ledger/internal/logger"
	"license_ledger/internal/models"
	"license_ledger/internal/repositories"
	"license_ledger/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// The legacy generators disagreed on 11 vs 12 characters; fixed here.
	codeLength   = 12
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Collision retry bound. The keyspace is 36^12, so hitting this bound
	// means the store or the generator is broken, not bad luck.
	maxIssueAttempts = 5
)

type IssuanceService interface {
	Issue(ctx context.Context, db *gorm.DB, orderNo string, features datatypes.JSON, purchaseDate time.Time) (*models.License, error)
}

type IssuanceServiceImpl struct {
	licenseRepo repositories.LicenseRepository

	// generate is swappable in tests to force collisions.
	generate func() (string, error)
}

func NewIssuanceService(licenseRepo repositories.LicenseRepository) *IssuanceServiceImpl {
	return &IssuanceServiceImpl{
		licenseRepo: licenseRepo,
		generate:    randomCode,
	}
}

// Issue creates the single license for orderNo. One license per order: a
// second issue call for the same order fails instead of minting another code.
func (s *IssuanceServiceImpl) Issue(ctx context.Context, db *gorm.DB, orderNo string, features datatypes.JSON, purchaseDate time.Time) (*models.License, error) {
	existing, err := s.licenseRepo.FindByOrderNo(db, orderNo)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if len(existing) > 0 {
		return nil, apperrors.ErrLicenseExists
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, apperrors.InternalError(err)
		}

		license := &models.License{
			Code:         code,
			OrderNo:      orderNo,
			Status:       models.LicenseStatusActive,
			Features:     features,
			PurchaseDate: purchaseDate,
		}

		err = s.licenseRepo.Create(db, license)
		if err == nil {
			logger.CtxInfo(ctx, "license issued", "order_no", orderNo, "attempt", attempt)
			return license, nil
		}
		if !isUniqueViolation(err) {
			return nil, apperrors.InternalError(err)
		}
		logger.CtxWarn(ctx, "access code collision, retrying", "order_no", orderNo, "attempt", attempt)
	}

	return nil, apperrors.ErrExhaustedRetries
}

// randomCode draws uniformly over the fixed alphabet with crypto/rand.
func randomCode() (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// isUniqueViolation matches unique-constraint errors across postgres and the
// sqlite test store.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "duplicate")
}
