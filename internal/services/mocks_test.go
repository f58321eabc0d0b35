package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"license_ledger/internal/models"

	"gorm.io/gorm"
)

// In-memory repositories backing the service tests. They reproduce the store
// semantics the services depend on, in particular the conditional update used
// as the refund compare-and-swap, guarded by a mutex so concurrency tests are
// meaningful.

type memLicenseRepo struct {
	mu       sync.Mutex
	licenses []models.License

	createErr error // returned by Create after appending nothing
}

func (r *memLicenseRepo) Create(db *gorm.DB, license *models.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, l := range r.licenses {
		if l.Code == license.Code {
			return errors.New("UNIQUE constraint failed: licenses.code")
		}
		if l.OrderNo == license.OrderNo {
			return errors.New("UNIQUE constraint failed: licenses.order_no")
		}
	}
	r.licenses = append(r.licenses, *license)
	return nil
}

func (r *memLicenseRepo) FindByCode(db *gorm.DB, code string) ([]models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.License
	for _, l := range r.licenses {
		if l.Code == code {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLicenseRepo) FindByOrderNo(db *gorm.DB, orderNo string) ([]models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.License
	for _, l := range r.licenses {
		if l.OrderNo == orderNo {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLicenseRepo) MarkRefunded(db *gorm.DB, code, refundNo string, refundedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.licenses {
		if r.licenses[i].Code == code && r.licenses[i].Status == models.LicenseStatusActive {
			r.licenses[i].Status = models.LicenseStatusRefunded
			r.licenses[i].RefundNo = refundNo
			at := refundedAt
			r.licenses[i].RefundedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *memLicenseRepo) ResetToActive(db *gorm.DB, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.licenses {
		if r.licenses[i].Code == code {
			r.licenses[i].Status = models.LicenseStatusActive
			r.licenses[i].RefundNo = ""
			r.licenses[i].RefundedAt = nil
		}
	}
	return nil
}

func (r *memLicenseRepo) get(code string) *models.License {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.licenses {
		if r.licenses[i].Code == code {
			return &r.licenses[i]
		}
	}
	return nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []models.Order

	markRefundedErr error // injected failure for the partial-refund path
}

func (r *memOrderRepo) Create(db *gorm.DB, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *order)
	return nil
}

func (r *memOrderRepo) FindByOrderNo(db *gorm.DB, orderNo string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) MarkRefunded(db *gorm.DB, orderNo, refundAmount, refundNo string, refundedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markRefundedErr != nil {
		return r.markRefundedErr
	}
	for i := range r.orders {
		if r.orders[i].OrderNo == orderNo && r.orders[i].RefundStatus == models.RefundStatusNone {
			r.orders[i].RefundStatus = models.RefundStatusRefunded
			r.orders[i].RefundAmount = refundAmount
			r.orders[i].RefundNo = refundNo
			at := refundedAt
			r.orders[i].RefundedAt = &at
			return nil
		}
	}
	return errors.New("record not in expected state")
}

func (r *memOrderRepo) ResetRefund(db *gorm.DB, orderNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].OrderNo == orderNo {
			r.orders[i].RefundStatus = models.RefundStatusNone
			r.orders[i].RefundAmount = ""
			r.orders[i].RefundNo = ""
			r.orders[i].RefundedAt = nil
		}
	}
	return nil
}

func (r *memOrderRepo) get(orderNo string) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].OrderNo == orderNo {
			return &r.orders[i]
		}
	}
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	records []models.RefundAudit
}

func (r *memAuditRepo) Append(db *gorm.DB, record *models.RefundAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memAuditRepo) ListByOrderNo(db *gorm.DB, orderNo string) ([]models.RefundAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RefundAudit
	for _, rec := range r.records {
		if rec.OrderNo == orderNo {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAuditRepo) ListByCode(db *gorm.DB, code string) ([]models.RefundAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RefundAudit
	for _, rec := range r.records {
		if rec.Code == code {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAuditRepo) all() []models.RefundAudit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RefundAudit, len(r.records))
	copy(out, r.records)
	return out
}

// stubGateway counts refund calls and fails on demand.
type stubGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGateway) Refund(ctx context.Context, orderNo, refundNo, amount string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
