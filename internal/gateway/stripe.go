package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/resilience"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

const stripeDefaultBaseURL = "https://api.stripe.com"

// Stripe drives the PaymentIntents API. Creation returns the client secret
// the frontend hands to Stripe.js; verification reads the intent back and
// trusts only a terminal "succeeded" status.
type Stripe struct {
	PublishableKey string
	SecretKey      string
	BaseURL        string
	HTTP           resilience.HTTPClient
}

func (g *Stripe) Name() settings.GatewayName { return settings.GatewayStripe }

type stripeIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// CreateIntent opens a Stripe payment intent for the given amount.
func (g *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	start := time.Now()
	defer observeCall(settings.GatewayStripe, "create_intent", start)

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("automatic_payment_methods[enabled]", "true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return Intent{}, fmt.Errorf("stripe: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Intent{}, &RequestError{Gateway: "stripe", Operation: "create_intent", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, &RequestError{
			Gateway:    "stripe",
			Operation:  "create_intent",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}

	var intent stripeIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return Intent{}, fmt.Errorf("stripe: decode intent: %w", err)
	}
	return Intent{
		Gateway:      "stripe",
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		KeyID:        g.PublishableKey,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(intent.Currency),
	}, nil
}

// Verify fetches the payment intent named by the payment id. Only a
// "succeeded" status counts as verified; an unknown intent id is a rejection,
// not a provider failure.
func (g *Stripe) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	start := time.Now()
	defer observeCall(settings.GatewayStripe, "read_intent", start)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.BaseURL+"/v1/payment_intents/"+url.PathEscape(req.PaymentID), nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("stripe: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.SecretKey)

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		return VerifyResult{}, &RequestError{Gateway: "stripe", Operation: "read_intent", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Bogus or foreign payment id. The provider answered, the payment
		// is simply not ours or not real.
		return VerifyResult{Verified: false, Status: "not_found"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return VerifyResult{}, &RequestError{
			Gateway:    "stripe",
			Operation:  "read_intent",
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp.Body),
		}
	}

	var intent stripeIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return VerifyResult{}, fmt.Errorf("stripe: decode intent: %w", err)
	}
	return VerifyResult{Verified: intent.Status == "succeeded", Status: intent.Status}, nil
}
