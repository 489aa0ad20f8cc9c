package payment

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/gateway"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/obs"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

// PaymentMethodCOD is the storefront's cash on delivery marker. Orders placed
// with it settle offline and never touch a gateway.
const PaymentMethodCOD = "Cash on Delivery"

// PaymentRequest is the body of POST /payments/intent. Amount is in major
// currency units as entered by the storefront.
type PaymentRequest struct {
	OrderID       string  `json:"orderId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3,alpha"`
	PaymentMethod string  `json:"paymentMethod" validate:"required"`
}

// IntentResponse is the success envelope for intent creation. For online
// payments the embedded Intent carries the provider handle; for cash on
// delivery only Success and PaymentMethod are set.
type IntentResponse struct {
	Success       bool   `json:"success"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	gateway.Intent
}

// SettingsProvider yields the currently enabled gateway settings.
type SettingsProvider interface {
	Enabled(ctx context.Context) (settings.GatewaySettings, error)
	EnabledByGateway(ctx context.Context, name settings.GatewayName) (settings.GatewaySettings, error)
}

// GatewayResolver builds an adapter from a settings row.
type GatewayResolver interface {
	For(st settings.GatewaySettings) (gateway.Gateway, error)
}

// IntentService creates payment intents against whichever gateway the admin
// has enabled at the moment of the call.
type IntentService struct {
	Settings        SettingsProvider
	Gateways        GatewayResolver
	Validate        *validator.Validate
	DefaultCurrency string
	Logger          zerolog.Logger
}

// CreateIntent validates the request, short-circuits cash on delivery, and
// otherwise opens an intent with the enabled gateway.
func (s *IntentService) CreateIntent(ctx context.Context, req PaymentRequest) (IntentResponse, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.create_intent")
	defer span.End()

	if err := s.Validate.Struct(req); err != nil {
		recordIntent("none", "bad_request")
		return IntentResponse{}, errBadRequest("orderId, amount and paymentMethod are required", err)
	}

	if strings.TrimSpace(req.PaymentMethod) == PaymentMethodCOD {
		// Offline settlement: no settings lookup, no provider call.
		recordIntent("cod", "ok")
		span.SetAttributes(attribute.String("payment.method", "cod"))
		return IntentResponse{Success: true, PaymentMethod: "cod"}, nil
	}

	st, err := s.Settings.Enabled(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrNotConfigured) {
			recordIntent("none", "not_configured")
			return IntentResponse{}, errGatewayNotConfigured()
		}
		recordIntent("none", "settings_error")
		return IntentResponse{}, errGatewayRequestFailed(err)
	}
	span.SetAttributes(attribute.String("payment.gateway", string(st.Gateway)))

	gw, err := s.Gateways.For(st)
	if err != nil {
		recordIntent(string(st.Gateway), "unsupported")
		return IntentResponse{}, errUnsupportedGateway(string(st.Gateway))
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.DefaultCurrency
	}

	intent, err := gw.CreateIntent(ctx, gateway.IntentRequest{
		OrderID:  req.OrderID,
		Amount:   toMinorUnits(req.Amount),
		Currency: currency,
	})
	if err != nil {
		recordIntent(string(st.Gateway), "gateway_error")
		s.Logger.Error().Err(err).
			Str("gateway", string(st.Gateway)).
			Str("order_id", req.OrderID).
			Msg("payment intent creation failed")
		return IntentResponse{}, errGatewayRequestFailed(err)
	}

	recordIntent(string(st.Gateway), "ok")
	s.Logger.Info().
		Str("gateway", string(st.Gateway)).
		Str("order_id", req.OrderID).
		Int64("amount_minor", intent.Amount).
		Msg("payment intent created")
	return IntentResponse{Success: true, Intent: intent}, nil
}

// toMinorUnits converts a major-unit amount to cents, rounding half away from
// zero so 10.005 does not silently lose a cent to float representation.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func recordIntent(gatewayName, result string) {
	if obs.PaymentIntentTotal == nil {
		return
	}
	obs.PaymentIntentTotal.WithLabelValues(gatewayName, result).Inc()
}
