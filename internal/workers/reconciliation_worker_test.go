package workers

import (
	"context"
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

var workerDBSeq atomic.Int64

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", workerDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.License{}, &models.RefundAudit{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, orderNo string, orderRefund models.RefundStatus, licenseStatus models.LicenseStatus) {
	t.Helper()
	require.NoError(t, db.Create(&models.Order{
		OrderNo:      orderNo,
		Amount:       "48.00",
		Status:       models.OrderStatusPaid,
		RefundStatus: orderRefund,
	}).Error)
	require.NoError(t, db.Create(&models.License{
		Code:         "C" + orderNo,
		OrderNo:      orderNo,
		Status:       licenseStatus,
		PurchaseDate: time.Now(),
	}).Error)
}

func TestSweep_FindsDivergentPairs(t *testing.T) {
	db := newWorkerDB(t)
	w := NewReconciliationWorker(db, time.Minute)

	seed(t, db, "ORD-ok-active", models.RefundStatusNone, models.LicenseStatusActive)
	seed(t, db, "ORD-ok-refunded", models.RefundStatusRefunded, models.LicenseStatusRefunded)
	// A half-applied refund in each direction.
	seed(t, db, "ORD-half-license", models.RefundStatusNone, models.LicenseStatusRefunded)
	seed(t, db, "ORD-half-order", models.RefundStatusRefunded, models.LicenseStatusActive)

	pairs, err := w.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	found := map[string]DivergentPair{}
	for _, p := range pairs {
		found[p.OrderNo] = p
	}
	assert.Contains(t, found, "ORD-half-license")
	assert.Contains(t, found, "ORD-half-order")
	assert.NotContains(t, found, "ORD-ok-active")
	assert.NotContains(t, found, "ORD-ok-refunded")
}

func TestSweep_CleanStore(t *testing.T) {
	db := newWorkerDB(t)
	w := NewReconciliationWorker(db, time.Minute)

	seed(t, db, "ORD-clean", models.RefundStatusNone, models.LicenseStatusActive)

	pairs, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
