package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/events"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/gateway"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/order"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

type stubOrders struct {
	result order.MarkPaidResult
	err    error
	calls  []order.MarkPaidParams
}

func (s *stubOrders) MarkPaid(_ context.Context, p order.MarkPaidParams) (order.MarkPaidResult, error) {
	s.calls = append(s.calls, p)
	if s.err != nil {
		return order.MarkPaidResult{}, s.err
	}
	return s.result, nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertEvent(_ context.Context, evt events.Event) (events.Event, error) {
	m.events = append(m.events, evt)
	return evt, nil
}

type verifyFixture struct {
	svc      *VerifyService
	settings *stubSettings
	gw       *stubGateway
	orders   *stubOrders
	store    *memEventStore
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gw := &stubGateway{name: settings.GatewayRazorpay, verify: gateway.VerifyResult{Verified: true, Status: "signature_valid"}}
	st := &stubSettings{byName: map[settings.GatewayName]settings.GatewaySettings{
		settings.GatewayRazorpay: {Gateway: settings.GatewayRazorpay, KeyID: "k", KeySecret: "s"},
		settings.GatewayStripe:   {Gateway: settings.GatewayStripe, KeyID: "pk", KeySecret: "sk"},
	}}
	orders := &stubOrders{result: order.MarkPaidResult{Applied: true}}
	store := &memEventStore{}

	return &verifyFixture{
		svc: &VerifyService{
			Settings: st,
			Gateways: &stubResolver{gw: gw},
			Orders:   orders,
			Events:   &events.Bus{Store: store, Logger: zerolog.Nop()},
			Replay:   client,
			Validate: validator.New(),
			Logger:   zerolog.Nop(),
		},
		settings: st,
		gw:       gw,
		orders:   orders,
		store:    store,
	}
}

func razorpayVerification() VerificationRequest {
	return VerificationRequest{
		OrderID:        "ord-1",
		PaymentID:      "pay_123",
		Gateway:        "razorpay",
		Signature:      "sig",
		GatewayOrderID: "order_abc",
	}
}

func TestVerifyHappyPath(t *testing.T) {
	f := newVerifyFixture(t)

	resp, err := f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.True(t, resp.Verified)

	require.Len(t, f.orders.calls, 1)
	require.Equal(t, "ord-1", f.orders.calls[0].OrderID)
	require.Equal(t, "pay_123", f.orders.calls[0].PaymentID)

	require.Len(t, f.store.events, 1)
	require.Equal(t, events.TopicOrderPaid, f.store.events[0].Topic)
}

func TestVerifyValidation(t *testing.T) {
	f := newVerifyFixture(t)

	_, err := f.svc.Verify(context.Background(), VerificationRequest{PaymentID: "p", Gateway: "razorpay"})
	requireAppError(t, err, CodeBadRequest, 400)

	_, err = f.svc.Verify(context.Background(), VerificationRequest{OrderID: "o", PaymentID: "p", Gateway: "square"})
	requireAppError(t, err, CodeBadRequest, 400)

	// razorpay without signature material
	_, err = f.svc.Verify(context.Background(), VerificationRequest{OrderID: "o", PaymentID: "p", Gateway: "razorpay"})
	requireAppError(t, err, CodeBadRequest, 400)

	require.Empty(t, f.orders.calls)
}

func TestVerifyGatewayNotConfigured(t *testing.T) {
	f := newVerifyFixture(t)
	delete(f.settings.byName, settings.GatewayRazorpay)

	_, err := f.svc.Verify(context.Background(), razorpayVerification())
	requireAppError(t, err, CodeGatewayNotConfigured, 400)
}

func TestVerifyRejectedByProvider(t *testing.T) {
	f := newVerifyFixture(t)
	f.gw.verify = gateway.VerifyResult{Verified: false, Status: "signature_mismatch"}

	resp, err := f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.False(t, resp.Verified)

	// a rejected payment must never touch the order
	require.Empty(t, f.orders.calls)
	require.Empty(t, f.store.events)
}

func TestVerifyProviderUnreachableDegradesToFalse(t *testing.T) {
	f := newVerifyFixture(t)
	f.gw.verifyErr = &gateway.RequestError{Gateway: "razorpay", Operation: "read", Err: errors.New("timeout")}

	resp, err := f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.False(t, resp.Verified)
	require.Empty(t, f.orders.calls)
}

func TestVerifyOrderUpdateFailure(t *testing.T) {
	f := newVerifyFixture(t)

	f.orders.err = order.ErrPaymentMismatch
	_, err := f.svc.Verify(context.Background(), razorpayVerification())
	requireAppError(t, err, CodeOrderUpdateFailed, 409)

	f.orders.err = order.ErrNotFound
	_, err = f.svc.Verify(context.Background(), razorpayVerification())
	requireAppError(t, err, CodeOrderUpdateFailed, 404)

	f.orders.err = errors.New("db down")
	_, err = f.svc.Verify(context.Background(), razorpayVerification())
	requireAppError(t, err, CodeOrderUpdateFailed, 500)
}

func TestVerifyReplayShortCircuits(t *testing.T) {
	f := newVerifyFixture(t)

	resp, err := f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.True(t, resp.Verified)

	// replay: same outcome, no second provider call or order update
	resp, err = f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.True(t, resp.Verified)
	require.Len(t, f.gw.verifyReqs, 1)
	require.Len(t, f.orders.calls, 1)
	require.Len(t, f.store.events, 1)
}

func TestVerifyNoopDoesNotEmitEvent(t *testing.T) {
	f := newVerifyFixture(t)
	f.orders.result = order.MarkPaidResult{Applied: false}

	resp, err := f.svc.Verify(context.Background(), razorpayVerification())
	require.NoError(t, err)
	require.True(t, resp.Verified)
	require.Empty(t, f.store.events)
}
