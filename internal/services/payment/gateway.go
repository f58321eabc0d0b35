package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"license_ledger/internal/logger"
)

// Gateway is the outbound side of the payment channel: submitting refunds.
// Only success/failure is modeled; the channel's own bookkeeping is not.
type Gateway interface {
	Refund(ctx context.Context, orderNo, refundNo, amount string) error
}

// ZPayGateway calls the Z-Pay merchant refund API over HTTPS. Requests are
// signed with the same MD5 scheme as inbound callbacks.
type ZPayGateway struct {
	merchantID string
	key        string
	baseURL    string
	client     *http.Client
}

func NewZPayGateway(merchantID, key, baseURL string) *ZPayGateway {
	return &ZPayGateway{
		merchantID: merchantID,
		key:        key,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type refundResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (g *ZPayGateway) Refund(ctx context.Context, orderNo, refundNo, amount string) error {
	params := map[string]string{
		"pid":          g.merchantID,
		"out_trade_no": orderNo,
		"refund_no":    refundNo,
		"money":        amount,
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("sign", Sign(params, g.key))
	form.Set("sign_type", "MD5")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/refund", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call refund API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refund API returned HTTP %d", resp.StatusCode)
	}

	var body refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode refund response: %w", err)
	}
	if body.Code != 1 {
		return fmt.Errorf("refund rejected by channel: %s", body.Msg)
	}

	logger.CtxInfo(ctx, "gateway refund accepted", "order_no", orderNo, "refund_no", refundNo)
	return nil
}
