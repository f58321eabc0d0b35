package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"license_ledger/internal/logger"
	"license_ledger/internal/services"
	"license_ledger/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// CallbackHandler receives Z-Pay payment notifications. The channel sends
// either form-encoded bodies, query parameters or JSON depending on the
// notification type, so decoding normalizes all three into one parameter map
// before anything else looks at the request.
type CallbackHandler struct {
	*BaseHandler
	callbackService services.CallbackService
}

func NewCallbackHandler(base *BaseHandler, callbackService services.CallbackService) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler:     base,
		callbackService: callbackService,
	}
}

func (h *CallbackHandler) RegisterRoutes(r *gin.RouterGroup) {
	zpay := r.Group("/zpay")
	{
		// No auth: external channel callback, authenticated by signature.
		zpay.POST("/callback", h.ProcessPaymentCallback)
		zpay.GET("/callback", h.ProcessPaymentCallback)
	}
}

func (h *CallbackHandler) ProcessPaymentCallback(c *gin.Context) {
	params, err := decodeCallbackParams(c)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unable to decode callback parameters"))
		return
	}

	result, err := h.callbackService.HandlePayment(c.Request.Context(), h.GetDB(c), params)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"access_code": result.AccessCode,
		"order_no":    result.OrderNo,
	})
}

// decodeCallbackParams flattens query, form and JSON-object bodies into a
// single map. JSON values that are numbers are rendered back as their literal
// text so signatures stay stable.
func decodeCallbackParams(c *gin.Context) (map[string]string, error) {
	params := map[string]string{}

	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	contentType := c.ContentType()
	switch {
	case strings.Contains(contentType, "application/json"):
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		var raw map[string]interface{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				params[k] = val
			case json.Number:
				params[k] = val.String()
			default:
				logger.CtxDebug(c.Request.Context(), "dropping non-scalar callback field", "field", k)
			}
		}
	default:
		if err := c.Request.ParseForm(); err == nil {
			for k, v := range c.Request.PostForm {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
	}

	return params, nil
}
