package workers

import (
	"context"
	"time"

	"license_ledger/internal/logger"

	"gorm.io/gorm"
)

// ReconciliationWorker periodically scans for order/license pairs whose
// refund state diverged, which can happen when a dual write half-failed.
// Repair is deliberately manual: the sweep reports, an operator resets.
type ReconciliationWorker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewReconciliationWorker(db *gorm.DB, interval time.Duration) *ReconciliationWorker {
	return &ReconciliationWorker{db: db, interval: interval}
}

// Start launches the sweep loop. It stops when ctx is cancelled.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	go w.sweepLoop(ctx)
}

// DivergentPair is one order/license pair whose refund states disagree.
type DivergentPair struct {
	OrderNo       string `gorm:"column:order_no"`
	RefundStatus  string `gorm:"column:refund_status"`
	Code          string `gorm:"column:code"`
	LicenseStatus string `gorm:"column:license_status"`
}

func (w *ReconciliationWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one divergence scan and returns what it found. Exported so
// tests and admin tooling can trigger it directly.
func (w *ReconciliationWorker) Sweep(ctx context.Context) ([]DivergentPair, error) {
	var pairs []DivergentPair
	err := w.db.WithContext(ctx).Raw(`
		SELECT o.order_no, o.refund_status, l.code, l.status AS license_status
		FROM orders o
		JOIN licenses l ON l.order_no = o.order_no
		WHERE (o.refund_status = 'refunded' AND l.status <> 'refunded')
		   OR (o.refund_status = 'none' AND l.status = 'refunded')
	`).Scan(&pairs).Error
	if err != nil {
		logger.WorkerLog("reconciliation", "sweep", err)
		return nil, err
	}

	for _, p := range pairs {
		logger.Error("refund state divergence detected",
			"worker", "reconciliation",
			"order_no", p.OrderNo,
			"order_refund_status", p.RefundStatus,
			"code", p.Code,
			"license_status", p.LicenseStatus,
		)
	}

	if len(pairs) == 0 {
		logger.WorkerLog("reconciliation", "sweep", nil)
	}
	return pairs, nil
}
