package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"license_ledger/internal/models"
	"license_ledger/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode_Properties(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		_, dup := seen[code]
		require.False(t, dup, "generated a duplicate code: %s", code)
		seen[code] = struct{}{}
	}
}

func TestIssue_Success(t *testing.T) {
	repo := &memLicenseRepo{}
	svc := NewIssuanceService(repo)
	purchased := time.Now()

	license, err := svc.Issue(context.Background(), nil, testOrderNo, nil, purchased)
	require.NoError(t, err)

	assert.Len(t, license.Code, codeLength)
	assert.Equal(t, strings.ToUpper(license.Code), license.Code)
	assert.Equal(t, testOrderNo, license.OrderNo)
	assert.Equal(t, models.LicenseStatusActive, license.Status)
	assert.Equal(t, purchased, license.PurchaseDate)

	stored, err := repo.FindByOrderNo(nil, testOrderNo)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, license.Code, stored[0].Code)
}

func TestIssue_OneLicensePerOrder(t *testing.T) {
	repo := &memLicenseRepo{}
	svc := NewIssuanceService(repo)
	ctx := context.Background()

	first, err := svc.Issue(ctx, nil, testOrderNo, nil, time.Now())
	require.NoError(t, err)

	_, err = svc.Issue(ctx, nil, testOrderNo, nil, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrLicenseExists)

	stored, _ := repo.FindByOrderNo(nil, testOrderNo)
	require.Len(t, stored, 1, "the second call must not mint another code")
	assert.Equal(t, first.Code, stored[0].Code)
}

func TestIssue_RetriesOnCollision(t *testing.T) {
	repo := &memLicenseRepo{}
	repo.licenses = append(repo.licenses, models.License{
		Code:    "COLLIDING000",
		OrderNo: "ORD-earlier",
		Status:  models.LicenseStatusActive,
	})

	svc := NewIssuanceService(repo)
	calls := 0
	svc.generate = func() (string, error) {
		calls++
		if calls < 3 {
			return "COLLIDING000", nil
		}
		return "FRESH0000000", nil
	}

	license, err := svc.Issue(context.Background(), nil, testOrderNo, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "FRESH0000000", license.Code)
	assert.Equal(t, 3, calls)
}

func TestIssue_ExhaustedRetries(t *testing.T) {
	repo := &memLicenseRepo{}
	repo.licenses = append(repo.licenses, models.License{
		Code:    "COLLIDING000",
		OrderNo: "ORD-earlier",
		Status:  models.LicenseStatusActive,
	})

	svc := NewIssuanceService(repo)
	calls := 0
	svc.generate = func() (string, error) {
		calls++
		return "COLLIDING000", nil
	}

	_, err := svc.Issue(context.Background(), nil, testOrderNo, nil, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrExhaustedRetries)
	assert.Equal(t, maxIssueAttempts, calls)
}

func TestIssue_NonUniqueStoreErrorNotRetried(t *testing.T) {
	repo := &memLicenseRepo{createErr: errors.New("disk I/O error")}
	svc := NewIssuanceService(repo)

	_, err := svc.Issue(context.Background(), nil, testOrderNo, nil, time.Now())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInternalError, appErr.Code)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: licenses.code")))
	assert.True(t, isUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_licenses_code"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}
