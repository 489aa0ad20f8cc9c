package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/obs"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/resilience"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

// ErrUnsupported is returned when no adapter exists for a gateway name.
var ErrUnsupported = errors.New("gateway: unsupported gateway")

// IntentRequest carries the order details needed to open a payment with a
// provider. Amount is in minor units (cents, paise).
type IntentRequest struct {
	OrderID  string
	Amount   int64
	Currency string
}

// Intent is the provider handle the storefront needs to launch a payment.
// Fields are provider specific and omitted when empty. Secrets never appear
// here: KeyID is always the public half of the credential pair.
type Intent struct {
	Gateway        string `json:"gateway,omitempty"`
	GatewayOrderID string `json:"gatewayOrderId,omitempty"`
	IntentID       string `json:"intentId,omitempty"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	KeyID          string `json:"keyId,omitempty"`
	ApprovalURL    string `json:"approvalUrl,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// VerifyRequest carries the identifiers the client obtained after completing
// a payment. Signature and GatewayOrderID are only meaningful for Razorpay.
type VerifyRequest struct {
	OrderID        string
	PaymentID      string
	Signature      string
	GatewayOrderID string
}

// VerifyResult reports the provider's view of a payment. Verified false with
// a nil error means the provider answered and rejected the payment; a non-nil
// error means the provider could not be consulted at all.
type VerifyResult struct {
	Verified bool
	Status   string
}

// Gateway is the uniform adapter contract. Implementations are stateless
// values constructed per request from the current settings row.
type Gateway interface {
	Name() settings.GatewayName
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error)
}

// RequestError describes a failed call to a provider API.
type RequestError struct {
	Gateway    string
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: %s: status %d: %s", e.Gateway, e.Operation, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Gateway, e.Operation, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s: %s", e.Gateway, e.Operation, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Registry builds adapters from settings rows. It owns the shared HTTP client
// and one circuit breaker per gateway so breaker state survives across
// requests even though adapter values do not.
type Registry struct {
	Client      *http.Client
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	Logger      zerolog.Logger

	// Base URL overrides, primarily for tests. PayPal additionally switches
	// between sandbox and live based on the settings row's test mode.
	RazorpayBaseURL string
	StripeBaseURL   string
	PayPalBaseURL   string

	mu       sync.Mutex
	breakers map[settings.GatewayName]*resilience.Breaker
}

// For returns the adapter matching the settings row.
func (r *Registry) For(st settings.GatewaySettings) (Gateway, error) {
	switch st.Gateway {
	case settings.GatewayRazorpay:
		return &Razorpay{
			KeyID:     st.KeyID,
			KeySecret: st.KeySecret,
			BaseURL:   defaultString(r.RazorpayBaseURL, razorpayDefaultBaseURL),
			HTTP:      r.httpFor(settings.GatewayRazorpay),
		}, nil
	case settings.GatewayStripe:
		return &Stripe{
			PublishableKey: st.KeyID,
			SecretKey:      st.KeySecret,
			BaseURL:        defaultString(r.StripeBaseURL, stripeDefaultBaseURL),
			HTTP:           r.httpFor(settings.GatewayStripe),
		}, nil
	case settings.GatewayPayPal:
		base := r.PayPalBaseURL
		if base == "" {
			base = paypalLiveBaseURL
			if st.TestMode {
				base = paypalSandboxBaseURL
			}
		}
		return &PayPal{
			ClientID:     st.KeyID,
			ClientSecret: st.KeySecret,
			BaseURL:      base,
			HTTP:         r.httpFor(settings.GatewayPayPal),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, st.Gateway)
	}
}

func (r *Registry) httpFor(name settings.GatewayName) resilience.HTTPClient {
	r.mu.Lock()
	if r.breakers == nil {
		r.breakers = make(map[settings.GatewayName]*resilience.Breaker)
	}
	breaker, ok := r.breakers[name]
	if !ok {
		breaker = resilience.NewBreaker(5, 0.6, 30*time.Second).
			WithTarget("gateway_" + string(name)).
			WithLogger(r.Logger)
		r.breakers[name] = breaker
	}
	r.mu.Unlock()

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	return resilience.HTTPClient{
		Client:      client,
		Breaker:     breaker,
		BaseBackoff: r.BackoffBase,
		MaxAttempts: r.MaxAttempts,
		Jitter:      0.2,
		Timeout:     r.Timeout,
	}
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// observeCall records outbound provider latency for one logical operation.
func observeCall(gateway settings.GatewayName, operation string, start time.Time) {
	if obs.GatewayRequestDuration == nil {
		return
	}
	obs.GatewayRequestDuration.WithLabelValues(string(gateway), operation).
		Observe(obs.DurationMillis(time.Since(start)))
}
