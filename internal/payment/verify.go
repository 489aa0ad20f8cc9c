package payment

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/common"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/events"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/gateway"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/obs"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/order"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

// VerificationRequest is the body of POST /payments/verify. Gateway names the
// provider the storefront completed the payment with; signature and
// gatewayOrderId are required for Razorpay only.
type VerificationRequest struct {
	OrderID        string `json:"orderId" validate:"required"`
	PaymentID      string `json:"paymentId" validate:"required"`
	Gateway        string `json:"gateway" validate:"required,oneof=razorpay stripe paypal"`
	Signature      string `json:"signature"`
	GatewayOrderID string `json:"gatewayOrderId"`
}

// VerifyResponse is the envelope for verification outcomes. A failed
// verification is a 400 with Success and Verified both false, not an error
// envelope, so storefront clients can branch on verified directly.
type VerifyResponse struct {
	Success  bool   `json:"success"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// OrderMarker transitions an order to paid.
type OrderMarker interface {
	MarkPaid(ctx context.Context, p order.MarkPaidParams) (order.MarkPaidResult, error)
}

// VerifyService confirms a completed payment with its provider and marks the
// order paid exactly once.
type VerifyService struct {
	Settings  SettingsProvider
	Gateways  GatewayResolver
	Orders    OrderMarker
	Events    *events.Bus
	Replay    *redis.Client
	ReplayTTL time.Duration
	Validate  *validator.Validate
	Logger    zerolog.Logger
}

// Verify runs the full verification flow. The returned error is nil both on
// success and on a plain "provider says no" rejection; callers distinguish
// those through VerifyResponse.Verified. Errors are reserved for invalid
// input and for failures after verification succeeded.
func (s *VerifyService) Verify(ctx context.Context, req VerificationRequest) (VerifyResponse, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.verify")
	defer span.End()

	if err := s.Validate.Struct(req); err != nil {
		return VerifyResponse{}, errBadRequest("orderId, paymentId and a supported gateway are required", err)
	}
	gatewayName := settings.GatewayName(req.Gateway)
	span.SetAttributes(attribute.String("payment.gateway", req.Gateway))

	if gatewayName == settings.GatewayRazorpay && (req.Signature == "" || req.GatewayOrderID == "") {
		return VerifyResponse{}, errBadRequest("signature and gatewayOrderId are required for razorpay", nil)
	}

	if s.alreadyVerified(ctx, req) {
		// A verified payment stays verified. Replays return the original
		// outcome without consulting the provider again.
		recordVerify(req.Gateway, "replay")
		return VerifyResponse{Success: true, Verified: true, Message: "payment verified"}, nil
	}

	st, err := s.Settings.EnabledByGateway(ctx, gatewayName)
	if err != nil {
		if errors.Is(err, settings.ErrNotConfigured) {
			recordVerify(req.Gateway, "not_configured")
			return VerifyResponse{}, errGatewayNotConfigured()
		}
		return VerifyResponse{}, errGatewayRequestFailed(err)
	}

	gw, err := s.Gateways.For(st)
	if err != nil {
		return VerifyResponse{}, errUnsupportedGateway(req.Gateway)
	}

	result, err := gw.Verify(ctx, gateway.VerifyRequest{
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		GatewayOrderID: req.GatewayOrderID,
	})
	if err != nil {
		// The provider could not be consulted. That is not proof of a bad
		// payment, but an unverifiable payment must not mark the order paid.
		recordVerify(req.Gateway, "provider_error")
		s.Logger.Warn().Err(err).
			Str("gateway", req.Gateway).
			Str("order_id", req.OrderID).
			Msg("payment verification provider unreachable")
		return VerifyResponse{Success: false, Verified: false, Message: "payment verification failed"}, nil
	}
	if !result.Verified {
		recordVerify(req.Gateway, "rejected")
		s.Logger.Info().
			Str("gateway", req.Gateway).
			Str("order_id", req.OrderID).
			Str("provider_status", result.Status).
			Msg("payment verification rejected")
		return VerifyResponse{Success: false, Verified: false, Message: "payment verification failed"}, nil
	}

	markResult, err := s.Orders.MarkPaid(ctx, order.MarkPaidParams{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Gateway:   req.Gateway,
	})
	if err != nil {
		recordMarkPaid("error")
		return VerifyResponse{}, mapMarkPaidError(err)
	}

	if markResult.Applied {
		recordMarkPaid("applied")
		if s.Events != nil {
			if _, err := s.Events.Emit(ctx, events.TopicOrderPaid, req.OrderID, map[string]string{
				"orderId":   req.OrderID,
				"paymentId": req.PaymentID,
				"gateway":   req.Gateway,
			}); err != nil {
				// The order is already paid; losing the event is log-worthy
				// but must not fail the verification.
				s.Logger.Error().Err(err).Str("order_id", req.OrderID).Msg("order paid event emit failed")
			}
		}
	} else {
		recordMarkPaid("noop")
	}

	s.rememberVerified(ctx, req)
	recordVerify(req.Gateway, "verified")
	s.Logger.Info().
		Str("gateway", req.Gateway).
		Str("order_id", req.OrderID).
		Bool("applied", markResult.Applied).
		Msg("payment verified")
	return VerifyResponse{Success: true, Verified: true, Message: "payment verified"}, nil
}

func mapMarkPaidError(err error) *common.AppError {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return errOrderUpdateFailed(404, "order not found", err)
	case errors.Is(err, order.ErrPaymentMismatch):
		return errOrderUpdateFailed(409, "order already paid with a different payment", err)
	case errors.Is(err, order.ErrInvalidTransition):
		return errOrderUpdateFailed(409, "order cannot transition to paid", err)
	default:
		return errOrderUpdateFailed(500, "failed to update order", err)
	}
}

func (s *VerifyService) replayKey(req VerificationRequest) string {
	return "verify:" + common.Sha256Hex(req.Gateway+":"+req.OrderID+":"+req.PaymentID)
}

func (s *VerifyService) alreadyVerified(ctx context.Context, req VerificationRequest) bool {
	if s.Replay == nil {
		return false
	}
	_, err := s.Replay.Get(ctx, s.replayKey(req)).Result()
	return err == nil
}

func (s *VerifyService) rememberVerified(ctx context.Context, req VerificationRequest) {
	if s.Replay == nil {
		return
	}
	ttl := s.ReplayTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.Replay.Set(ctx, s.replayKey(req), "verified", ttl).Err(); err != nil {
		s.Logger.Warn().Err(err).Str("order_id", req.OrderID).Msg("verify replay marker write failed")
	}
}

func recordVerify(gatewayName, result string) {
	if obs.PaymentVerifyTotal == nil {
		return
	}
	obs.PaymentVerifyTotal.WithLabelValues(gatewayName, result).Inc()
}

func recordMarkPaid(result string) {
	if obs.OrderMarkPaidTotal == nil {
		return
	}
	obs.OrderMarkPaidTotal.WithLabelValues(result).Inc()
}
