package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/resilience"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

const (
	paypalLiveBaseURL    = "https://api-m.paypal.com"
	paypalSandboxBaseURL = "https://api-m.sandbox.paypal.com"
)

// PayPal drives the Orders v2 API. Every call first exchanges the client
// credentials for a short-lived bearer token. Verification attempts a capture
// and falls back to reading the order when the capture is rejected, which
// covers orders the buyer's approval flow already captured.
type PayPal struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTP         resilience.HTTPClient
}

func (g *PayPal) Name() settings.GatewayName { return settings.GatewayPayPal }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

func (g *PayPal) token(ctx context.Context) (string, error) {
	start := time.Now()
	defer observeCall(settings.GatewayPayPal, "oauth_token", start)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	httpReq.SetBasicAuth(g.ClientID, g.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return "", &RequestError{Gateway: "paypal", Operation: "oauth_token", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{
			Gateway:    "paypal",
			Operation:  "oauth_token",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}
	var token paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", &RequestError{Gateway: "paypal", Operation: "oauth_token", Message: "empty access token"}
	}
	return token.AccessToken, nil
}

// CreateIntent opens a CAPTURE-intent PayPal order and returns the approval
// link the buyer is redirected to.
func (g *PayPal) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	accessToken, err := g.token(ctx)
	if err != nil {
		return Intent{}, err
	}

	start := time.Now()
	defer observeCall(settings.GatewayPayPal, "create_order", start)

	payload, err := json.Marshal(paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.OrderID,
			Amount: paypalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        minorUnitsToDecimal(req.Amount),
			},
		}},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("paypal: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return Intent{}, fmt.Errorf("paypal: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Intent{}, &RequestError{Gateway: "paypal", Operation: "create_order", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, &RequestError{
			Gateway:    "paypal",
			Operation:  "create_order",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}

	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Intent{}, fmt.Errorf("paypal: decode order: %w", err)
	}
	return Intent{
		Gateway:        "paypal",
		GatewayOrderID: order.ID,
		ApprovalURL:    approvalLink(order.Links),
		Amount:         req.Amount,
		Currency:       strings.ToUpper(req.Currency),
	}, nil
}

// Verify settles a PayPal order. It prefers capturing, since an approved but
// uncaptured order still needs the money moved; when the capture is refused
// (already captured, expired approval) it reads the order and accepts a
// COMPLETED or APPROVED status.
func (g *PayPal) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	accessToken, err := g.token(ctx)
	if err != nil {
		return VerifyResult{}, err
	}

	orderID := req.GatewayOrderID
	if orderID == "" {
		orderID = req.PaymentID
	}

	status, captureErr := g.capture(ctx, accessToken, orderID)
	if captureErr == nil {
		return VerifyResult{Verified: status == "COMPLETED", Status: status}, nil
	}

	status, readErr := g.readStatus(ctx, accessToken, orderID)
	if readErr != nil {
		return VerifyResult{}, readErr
	}
	verified := status == "COMPLETED" || status == "APPROVED"
	return VerifyResult{Verified: verified, Status: status}, nil
}

func (g *PayPal) capture(ctx context.Context, accessToken, orderID string) (string, error) {
	start := time.Now()
	defer observeCall(settings.GatewayPayPal, "capture_order", start)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("paypal: build capture request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return "", &RequestError{Gateway: "paypal", Operation: "capture_order", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{
			Gateway:    "paypal",
			Operation:  "capture_order",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}
	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("paypal: decode capture: %w", err)
	}
	return order.Status, nil
}

func (g *PayPal) readStatus(ctx context.Context, accessToken, orderID string) (string, error) {
	start := time.Now()
	defer observeCall(settings.GatewayPayPal, "read_order", start)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.BaseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return "", fmt.Errorf("paypal: build read request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return "", &RequestError{Gateway: "paypal", Operation: "read_order", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{
			Gateway:    "paypal",
			Operation:  "read_order",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}
	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("paypal: decode order: %w", err)
	}
	return order.Status, nil
}

func approvalLink(links []paypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// minorUnitsToDecimal renders cents as the "12.34" string PayPal expects.
func minorUnitsToDecimal(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
