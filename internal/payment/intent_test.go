package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/common"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/gateway"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

type stubSettings struct {
	enabled    settings.GatewaySettings
	enabledErr error
	byName     map[settings.GatewayName]settings.GatewaySettings
	calls      int
}

func (s *stubSettings) Enabled(context.Context) (settings.GatewaySettings, error) {
	s.calls++
	if s.enabledErr != nil {
		return settings.GatewaySettings{}, s.enabledErr
	}
	return s.enabled, nil
}

func (s *stubSettings) EnabledByGateway(_ context.Context, name settings.GatewayName) (settings.GatewaySettings, error) {
	s.calls++
	if s.enabledErr != nil {
		return settings.GatewaySettings{}, s.enabledErr
	}
	if st, ok := s.byName[name]; ok {
		return st, nil
	}
	return settings.GatewaySettings{}, settings.ErrNotConfigured
}

type stubGateway struct {
	name       settings.GatewayName
	intent     gateway.Intent
	intentErr  error
	intentReqs []gateway.IntentRequest
	verify     gateway.VerifyResult
	verifyErr  error
	verifyReqs []gateway.VerifyRequest
}

func (g *stubGateway) Name() settings.GatewayName { return g.name }

func (g *stubGateway) CreateIntent(_ context.Context, req gateway.IntentRequest) (gateway.Intent, error) {
	g.intentReqs = append(g.intentReqs, req)
	if g.intentErr != nil {
		return gateway.Intent{}, g.intentErr
	}
	return g.intent, nil
}

func (g *stubGateway) Verify(_ context.Context, req gateway.VerifyRequest) (gateway.VerifyResult, error) {
	g.verifyReqs = append(g.verifyReqs, req)
	if g.verifyErr != nil {
		return gateway.VerifyResult{}, g.verifyErr
	}
	return g.verify, nil
}

type stubResolver struct {
	gw  *stubGateway
	err error
}

func (r *stubResolver) For(settings.GatewaySettings) (gateway.Gateway, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.gw, nil
}

func newIntentService(st *stubSettings, res *stubResolver) *IntentService {
	return &IntentService{
		Settings:        st,
		Gateways:        res,
		Validate:        validator.New(),
		DefaultCurrency: "USD",
		Logger:          zerolog.Nop(),
	}
}

func TestCreateIntentHappyPath(t *testing.T) {
	gw := &stubGateway{
		name:   settings.GatewayRazorpay,
		intent: gateway.Intent{Gateway: "razorpay", GatewayOrderID: "order_abc", KeyID: "rzp_key"},
	}
	st := &stubSettings{enabled: settings.GatewaySettings{Gateway: settings.GatewayRazorpay, KeyID: "rzp_key", KeySecret: "sec"}}
	svc := newIntentService(st, &stubResolver{gw: gw})

	resp, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-1",
		Amount:        1250.00,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "order_abc", resp.GatewayOrderID)

	require.Len(t, gw.intentReqs, 1)
	require.Equal(t, int64(125000), gw.intentReqs[0].Amount)
	require.Equal(t, "USD", gw.intentReqs[0].Currency)
}

func TestCreateIntentCashOnDeliveryShortCircuits(t *testing.T) {
	st := &stubSettings{enabledErr: errors.New("settings must not be read for cod")}
	svc := newIntentService(st, &stubResolver{err: errors.New("gateway must not be resolved for cod")})

	resp, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-2",
		Amount:        300,
		PaymentMethod: "Cash on Delivery",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "cod", resp.PaymentMethod)
	require.Empty(t, resp.Gateway)
	require.Zero(t, st.calls)
}

func TestCreateIntentValidation(t *testing.T) {
	svc := newIntentService(&stubSettings{}, &stubResolver{})

	_, err := svc.CreateIntent(context.Background(), PaymentRequest{Amount: 10, PaymentMethod: "card"})
	requireAppError(t, err, CodeBadRequest, 400)

	_, err = svc.CreateIntent(context.Background(), PaymentRequest{OrderID: "ord-1", Amount: -5, PaymentMethod: "card"})
	requireAppError(t, err, CodeBadRequest, 400)

	_, err = svc.CreateIntent(context.Background(), PaymentRequest{OrderID: "ord-1", Amount: 10})
	requireAppError(t, err, CodeBadRequest, 400)
}

func TestCreateIntentNoGatewayConfigured(t *testing.T) {
	st := &stubSettings{enabledErr: settings.ErrNotConfigured}
	svc := newIntentService(st, &stubResolver{})

	_, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-3",
		Amount:        10,
		PaymentMethod: "card",
	})
	requireAppError(t, err, CodeGatewayNotConfigured, 400)
}

func TestCreateIntentUnsupportedGateway(t *testing.T) {
	st := &stubSettings{enabled: settings.GatewaySettings{Gateway: settings.GatewayName("square")}}
	svc := newIntentService(st, &stubResolver{err: gateway.ErrUnsupported})

	_, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-4",
		Amount:        10,
		PaymentMethod: "card",
	})
	requireAppError(t, err, CodeUnsupportedGateway, 400)
}

func TestCreateIntentGatewayFailure(t *testing.T) {
	gw := &stubGateway{name: settings.GatewayStripe, intentErr: &gateway.RequestError{Gateway: "stripe", Operation: "create_intent", StatusCode: 500}}
	st := &stubSettings{enabled: settings.GatewaySettings{Gateway: settings.GatewayStripe}}
	svc := newIntentService(st, &stubResolver{gw: gw})

	_, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-5",
		Amount:        10,
		PaymentMethod: "card",
	})
	requireAppError(t, err, CodeGatewayRequestFailed, 500)
}

func TestCreateIntentCurrencyOverride(t *testing.T) {
	gw := &stubGateway{name: settings.GatewayStripe, intent: gateway.Intent{Gateway: "stripe", IntentID: "pi_1"}}
	st := &stubSettings{enabled: settings.GatewaySettings{Gateway: settings.GatewayStripe}}
	svc := newIntentService(st, &stubResolver{gw: gw})

	_, err := svc.CreateIntent(context.Background(), PaymentRequest{
		OrderID:       "ord-6",
		Amount:        10.05,
		Currency:      "inr",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, "INR", gw.intentReqs[0].Currency)
	require.Equal(t, int64(1005), gw.intentReqs[0].Amount)
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
}
