package handlers

// AppHandlers holds every HTTP handler of the application.
type AppHandlers struct {
	CallbackHandler *CallbackHandler
	RefundHandler   *RefundHandler
	AdminHandler    *AdminHandler
}
