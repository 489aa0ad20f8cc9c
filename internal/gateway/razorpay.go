package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/resilience"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

const razorpayDefaultBaseURL = "https://api.razorpay.com"

// Razorpay creates orders through the Orders API and verifies payments
// locally by recomputing the checkout signature. Verification never calls
// the network, so a provider outage cannot block it.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      resilience.HTTPClient
}

func (g *Razorpay) Name() settings.GatewayName { return settings.GatewayRazorpay }

type razorpayOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateIntent opens a Razorpay order for the given amount. The returned
// intent carries the gateway order id and the public key id the checkout
// widget needs.
func (g *Razorpay) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	start := time.Now()
	defer observeCall(settings.GatewayRazorpay, "create_order", start)

	payload, err := json.Marshal(razorpayOrderRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Receipt:        req.OrderID,
		PaymentCapture: 1,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("razorpay: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return Intent{}, fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.SetBasicAuth(g.KeyID, g.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Intent{}, &RequestError{Gateway: "razorpay", Operation: "create_order", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, &RequestError{
			Gateway:    "razorpay",
			Operation:  "create_order",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}

	var order razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Intent{}, fmt.Errorf("razorpay: decode order: %w", err)
	}
	return Intent{
		Gateway:        "razorpay",
		GatewayOrderID: order.ID,
		KeyID:          g.KeyID,
		Amount:         order.Amount,
		Currency:       order.Currency,
	}, nil
}

// Verify recomputes the HMAC-SHA256 signature Razorpay's checkout returns and
// compares it in constant time. The signed message is the gateway order id and
// the payment id joined with a pipe.
func (g *Razorpay) Verify(_ context.Context, req VerifyRequest) (VerifyResult, error) {
	if req.GatewayOrderID == "" || req.Signature == "" {
		return VerifyResult{Verified: false, Status: "signature_missing"}, nil
	}
	mac := hmac.New(sha256.New, []byte(g.KeySecret))
	mac.Write([]byte(req.GatewayOrderID + "|" + req.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return VerifyResult{Verified: false, Status: "signature_mismatch"}, nil
	}
	return VerifyResult{Verified: true, Status: "signature_valid"}, nil
}

// readErrorBody extracts a short diagnostic string from a provider error
// response without risking unbounded reads.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil || len(data) == 0 {
		return ""
	}
	return string(data)
}
