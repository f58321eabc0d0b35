package app

import (
	"context"
	"sync"

	"license_ledger/internal/email"
	"license_ledger/internal/logger"
)

// MockEmailProvider logs instead of sending. Used when SMTP is disabled and
// in the test harness.
type MockEmailProvider struct {
	Sent []*email.Email
}

func (m *MockEmailProvider) Send(e *email.Email) error {
	m.Sent = append(m.Sent, e)
	logger.Info("mock email", "to", e.To, "subject", e.Subject)
	return nil
}

func (m *MockEmailProvider) SendAccessCode(to, code, orderNo string) error {
	return m.Send(&email.Email{
		To:      []string{to},
		Subject: "Your access code",
		Body:    "Order: " + orderNo + "\nAccess code: " + code,
	})
}

func (m *MockEmailProvider) Close() error { return nil }

// MockGateway records refund calls and returns a configurable error. Stands
// in for the Z-Pay refund API in tests and local development.
type MockGateway struct {
	Err error

	mu    sync.Mutex
	Calls []MockRefundCall
}

type MockRefundCall struct {
	OrderNo  string
	RefundNo string
	Amount   string
}

func (g *MockGateway) Refund(ctx context.Context, orderNo, refundNo, amount string) error {
	g.mu.Lock()
	g.Calls = append(g.Calls, MockRefundCall{OrderNo: orderNo, RefundNo: refundNo, Amount: amount})
	g.mu.Unlock()
	return g.Err
}

// CallCount returns how many refund calls reached the gateway.
func (g *MockGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}
