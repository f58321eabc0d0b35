package email

// Provider abstracts outbound email so the application can run with a real
// SMTP transport in production and a mock in tests.
type Provider interface {
	// Send delivers one message.
	Send(email *Email) error

	// SendAccessCode delivers the freshly issued access code to the buyer.
	SendAccessCode(to, code, orderNo string) error

	// Close releases the underlying transport.
	Close() error
}
