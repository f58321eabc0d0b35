package repositories

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"license_ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var repoDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", repoDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.License{}, &models.RefundAudit{}))
	return db
}

func seedPair(t *testing.T, db *gorm.DB, code, orderNo string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Order{
		OrderNo:      orderNo,
		Amount:       "48.00",
		Status:       models.OrderStatusPaid,
		RefundStatus: models.RefundStatusNone,
	}).Error)
	require.NoError(t, db.Create(&models.License{
		Code:         code,
		OrderNo:      orderNo,
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now(),
	}).Error)
}

func TestLicenseMarkRefunded_SingleWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewLicenseRepository()
	seedPair(t, db, "CAS123456789", "ORD-cas")

	now := time.Now()
	won, err := repo.MarkRefunded(db, "CAS123456789", "RF-1", now)
	require.NoError(t, err)
	assert.True(t, won)

	// The conditional update is keyed on status = active; the second caller
	// sees zero rows affected.
	won, err = repo.MarkRefunded(db, "CAS123456789", "RF-2", now)
	require.NoError(t, err)
	assert.False(t, won)

	licenses, err := repo.FindByCode(db, "CAS123456789")
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, models.LicenseStatusRefunded, licenses[0].Status)
	assert.Equal(t, "RF-1", licenses[0].RefundNo, "the loser must not overwrite refund metadata")
}

func TestLicenseResetToActive_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewLicenseRepository()
	seedPair(t, db, "RST123456789", "ORD-rst")

	_, err := repo.MarkRefunded(db, "RST123456789", "RF-1", time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.ResetToActive(db, "RST123456789"))
	require.NoError(t, repo.ResetToActive(db, "RST123456789"))

	licenses, err := repo.FindByCode(db, "RST123456789")
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, models.LicenseStatusActive, licenses[0].Status)
	assert.Empty(t, licenses[0].RefundNo)
	assert.Nil(t, licenses[0].RefundedAt)
}

func TestLicenseUniqueIndexes(t *testing.T) {
	db := newTestDB(t)
	repo := NewLicenseRepository()
	seedPair(t, db, "UNIQ12345678", "ORD-uniq")

	err := repo.Create(db, &models.License{
		Code:         "UNIQ12345678",
		OrderNo:      "ORD-other",
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now(),
	})
	assert.Error(t, err, "duplicate code must be rejected by the store")

	err = repo.Create(db, &models.License{
		Code:         "OTHER1234567",
		OrderNo:      "ORD-uniq",
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now(),
	})
	assert.Error(t, err, "one license per order is enforced by the store")
}

func TestOrderMarkRefunded_Conditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository()
	seedPair(t, db, "ORD123456789", "ORD-cond")

	now := time.Now()
	require.NoError(t, repo.MarkRefunded(db, "ORD-cond", "48.00", "RF-1", now))

	err := repo.MarkRefunded(db, "ORD-cond", "48.00", "RF-2", now)
	assert.ErrorIs(t, err, ErrStateConflict)

	err = repo.MarkRefunded(db, "ORD-missing", "48.00", "RF-3", now)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestOrderResetRefund(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository()
	seedPair(t, db, "ORR123456789", "ORD-reset")

	require.NoError(t, repo.MarkRefunded(db, "ORD-reset", "48.00", "RF-1", time.Now()))
	require.NoError(t, repo.ResetRefund(db, "ORD-reset"))
	// Resetting an already-active order is not an error.
	require.NoError(t, repo.ResetRefund(db, "ORD-reset"))

	orders, err := repo.FindByOrderNo(db, "ORD-reset")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.RefundStatusNone, orders[0].RefundStatus)
	assert.Empty(t, orders[0].RefundAmount)
	assert.Empty(t, orders[0].RefundNo)
	assert.Nil(t, orders[0].RefundedAt)
}

func TestAuditAppendAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository()

	base := time.Now().Add(-time.Minute)
	for i, outcome := range []models.AuditOutcome{
		models.AuditOutcomeFailed,
		models.AuditOutcomeSuccess,
	} {
		record := &models.RefundAudit{
			Code:      "AUD123456789",
			OrderNo:   "ORD-audit",
			Operation: "refund",
			Outcome:   outcome,
			Detail:    fmt.Sprintf("attempt %d", i+1),
		}
		// Distinct timestamps so the created_at ordering is deterministic.
		record.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Append(db, record))
	}

	byOrder, err := repo.ListByOrderNo(db, "ORD-audit")
	require.NoError(t, err)
	require.Len(t, byOrder, 2)
	assert.Equal(t, models.AuditOutcomeFailed, byOrder[0].Outcome, "oldest record first")
	assert.Equal(t, models.AuditOutcomeSuccess, byOrder[1].Outcome)

	byCode, err := repo.ListByCode(db, "AUD123456789")
	require.NoError(t, err)
	assert.Len(t, byCode, 2)
}
