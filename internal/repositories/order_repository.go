package repositories

import (
	"errors"
	"time"

	"license_ledger/internal/models"

	"gorm.io/gorm"
)

// ErrStateConflict is returned when a conditional update matched no rows, so
// the record was not in the state the transition requires.
var ErrStateConflict = errors.New("record not in expected state")

type OrderRepository interface {
	Create(db *gorm.DB, order *models.Order) error
	FindByOrderNo(db *gorm.DB, orderNo string) ([]models.Order, error)
	MarkRefunded(db *gorm.DB, orderNo, refundAmount, refundNo string, refundedAt time.Time) error
	ResetRefund(db *gorm.DB, orderNo string) error
}

type OrderRepositoryImpl struct{}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (r *OrderRepositoryImpl) Create(db *gorm.DB, order *models.Order) error {
	return db.Create(order).Error
}

// FindByOrderNo returns every row matching the business key. Callers decide
// what more than one match means; the repository never picks a "first" match.
func (r *OrderRepositoryImpl) FindByOrderNo(db *gorm.DB, orderNo string) ([]models.Order, error) {
	var orders []models.Order
	err := db.Where("order_no = ?", orderNo).Find(&orders).Error
	return orders, err
}

// MarkRefunded transitions the order's refund state. Conditional on the row
// not already being refunded so a repeated call cannot overwrite metadata.
func (r *OrderRepositoryImpl) MarkRefunded(db *gorm.DB, orderNo, refundAmount, refundNo string, refundedAt time.Time) error {
	result := db.Model(&models.Order{}).
		Where("order_no = ? AND refund_status = ?", orderNo, models.RefundStatusNone).
		Updates(map[string]interface{}{
			"refund_status": models.RefundStatusRefunded,
			"refund_amount": refundAmount,
			"refund_no":     refundNo,
			"refunded_at":   refundedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

// ResetRefund clears refund metadata back to explicit defaults. Idempotent:
// resetting an order that is not refunded affects zero rows and is not an
// error.
func (r *OrderRepositoryImpl) ResetRefund(db *gorm.DB, orderNo string) error {
	return db.Model(&models.Order{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"refund_status": models.RefundStatusNone,
			"refund_amount": "",
			"refund_no":     "",
			"refunded_at":   nil,
		}).Error
}
