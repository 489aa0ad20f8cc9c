package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/resilience"
)

func testHTTPClient(srv *httptest.Server) resilience.HTTPClient {
	return resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1}
}

func signRazorpay(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayCreateIntent(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":125000,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	gw := &Razorpay{KeyID: "rzp_test_key", KeySecret: "shhh", BaseURL: srv.URL, HTTP: testHTTPClient(srv)}
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{OrderID: "ord-1", Amount: 125000, Currency: "INR"})
	require.NoError(t, err)

	require.Equal(t, "rzp_test_key", gotAuthUser)
	require.Equal(t, "shhh", gotAuthPass)
	require.Equal(t, float64(125000), gotBody["amount"])
	require.Equal(t, "ord-1", gotBody["receipt"])

	require.Equal(t, "razorpay", intent.Gateway)
	require.Equal(t, "order_abc", intent.GatewayOrderID)
	require.Equal(t, "rzp_test_key", intent.KeyID)
	require.Empty(t, intent.ClientSecret)
}

func TestRazorpayCreateIntentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"description":"bad key"}}`))
	}))
	defer srv.Close()

	gw := &Razorpay{KeyID: "k", KeySecret: "s", BaseURL: srv.URL, HTTP: testHTTPClient(srv)}
	_, err := gw.CreateIntent(context.Background(), IntentRequest{OrderID: "ord-1", Amount: 100, Currency: "INR"})
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestRazorpayVerifySignature(t *testing.T) {
	gw := &Razorpay{KeySecret: "shhh"}

	valid := signRazorpay("shhh", "order_abc", "pay_123")
	result, err := gw.Verify(context.Background(), VerifyRequest{
		PaymentID:      "pay_123",
		GatewayOrderID: "order_abc",
		Signature:      valid,
	})
	require.NoError(t, err)
	require.True(t, result.Verified)

	// same inputs always verify the same way
	again, err := gw.Verify(context.Background(), VerifyRequest{
		PaymentID:      "pay_123",
		GatewayOrderID: "order_abc",
		Signature:      valid,
	})
	require.NoError(t, err)
	require.Equal(t, result, again)
}

func TestRazorpayVerifyTamperedSignature(t *testing.T) {
	gw := &Razorpay{KeySecret: "shhh"}
	tampered := signRazorpay("shhh", "order_abc", "pay_456")
	result, err := gw.Verify(context.Background(), VerifyRequest{
		PaymentID:      "pay_123",
		GatewayOrderID: "order_abc",
		Signature:      tampered,
	})
	require.NoError(t, err)
	require.False(t, result.Verified)
	require.Equal(t, "signature_mismatch", result.Status)
}

func TestRazorpayVerifyMissingInputs(t *testing.T) {
	gw := &Razorpay{KeySecret: "shhh"}
	result, err := gw.Verify(context.Background(), VerifyRequest{PaymentID: "pay_123"})
	require.NoError(t, err)
	require.False(t, result.Verified)
	require.Equal(t, "signature_missing", result.Status)
}
