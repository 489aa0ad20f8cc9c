package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/gateway"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/order"
	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/settings"
)

func newTestHandler(gw *stubGateway, st *stubSettings, orders *stubOrders) *Handler {
	validate := validator.New()
	return &Handler{
		Intents: &IntentService{
			Settings:        st,
			Gateways:        &stubResolver{gw: gw},
			Validate:        validate,
			DefaultCurrency: "USD",
			Logger:          zerolog.Nop(),
		},
		Verifier: &VerifyService{
			Settings: st,
			Gateways: &stubResolver{gw: gw},
			Orders:   orders,
			Validate: validate,
			Logger:   zerolog.Nop(),
		},
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateIntent(t *testing.T) {
	gw := &stubGateway{
		name:   settings.GatewayStripe,
		intent: gateway.Intent{Gateway: "stripe", IntentID: "pi_1", ClientSecret: "pi_1_secret", KeyID: "pk_test"},
	}
	st := &stubSettings{enabled: settings.GatewaySettings{Gateway: settings.GatewayStripe, KeyID: "pk_test", KeySecret: "sk_test"}}
	h := newTestHandler(gw, st, &stubOrders{}).Routes()

	rec := postJSON(t, h, "/intent", `{"orderId":"ord-1","amount":25.99,"paymentMethod":"card"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "pi_1_secret", body["clientSecret"])

	// the secret credential must never appear in a response
	require.NotContains(t, rec.Body.String(), "sk_test")
}

func TestHandlerCreateIntentBadJSON(t *testing.T) {
	h := newTestHandler(&stubGateway{}, &stubSettings{}, &stubOrders{}).Routes()
	rec := postJSON(t, h, "/intent", `{"orderId":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), CodeBadRequest)
}

func TestHandlerCreateIntentNotConfigured(t *testing.T) {
	st := &stubSettings{enabledErr: settings.ErrNotConfigured}
	h := newTestHandler(&stubGateway{}, st, &stubOrders{}).Routes()

	rec := postJSON(t, h, "/intent", `{"orderId":"ord-1","amount":10,"paymentMethod":"card"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), CodeGatewayNotConfigured)
}

func TestHandlerVerifySuccess(t *testing.T) {
	gw := &stubGateway{name: settings.GatewayStripe, verify: gateway.VerifyResult{Verified: true, Status: "succeeded"}}
	st := &stubSettings{byName: map[settings.GatewayName]settings.GatewaySettings{
		settings.GatewayStripe: {Gateway: settings.GatewayStripe},
	}}
	h := newTestHandler(gw, st, &stubOrders{result: order.MarkPaidResult{Applied: true}}).Routes()

	rec := postJSON(t, h, "/verify", `{"orderId":"ord-1","paymentId":"pi_1","gateway":"stripe"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.True(t, body.Verified)
}

func TestHandlerVerifyRejectedIs400WithEnvelope(t *testing.T) {
	gw := &stubGateway{name: settings.GatewayStripe, verify: gateway.VerifyResult{Verified: false, Status: "requires_payment_method"}}
	st := &stubSettings{byName: map[settings.GatewayName]settings.GatewaySettings{
		settings.GatewayStripe: {Gateway: settings.GatewayStripe},
	}}
	h := newTestHandler(gw, st, &stubOrders{}).Routes()

	rec := postJSON(t, h, "/verify", `{"orderId":"ord-1","paymentId":"pi_1","gateway":"stripe"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.False(t, body.Verified)
}

func TestHandlerVerifyOrderConflict(t *testing.T) {
	gw := &stubGateway{name: settings.GatewayStripe, verify: gateway.VerifyResult{Verified: true, Status: "succeeded"}}
	st := &stubSettings{byName: map[settings.GatewayName]settings.GatewaySettings{
		settings.GatewayStripe: {Gateway: settings.GatewayStripe},
	}}
	h := newTestHandler(gw, st, &stubOrders{err: order.ErrPaymentMismatch}).Routes()

	rec := postJSON(t, h, "/verify", `{"orderId":"ord-1","paymentId":"pi_other","gateway":"stripe"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), CodeOrderUpdateFailed)
}
