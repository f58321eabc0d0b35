package services

import "time"

// IsWithinRefundWindow is the single shared implementation of the
// refund-eligibility rule. The boundary is inclusive: exactly windowDays after
// purchase is still eligible, one hour past that is not. Day counting drifted
// between callers before this was centralized, so every caller must go through
// here.
func IsWithinRefundWindow(purchaseTime, now time.Time, windowDays int) bool {
	return now.Sub(purchaseTime) <= time.Duration(windowDays)*24*time.Hour
}
