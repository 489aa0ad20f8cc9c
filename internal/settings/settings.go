package settings

import (
	"fmt"
	"strings"
	"time"
)

// GatewayName identifies a supported payment gateway. The set is closed:
// unknown names are rejected at the boundary instead of falling through.
type GatewayName string

const (
	GatewayRazorpay GatewayName = "razorpay"
	GatewayStripe   GatewayName = "stripe"
	GatewayPayPal   GatewayName = "paypal"
)

// ParseGatewayName normalises and validates a gateway tag.
func ParseGatewayName(value string) (GatewayName, error) {
	switch GatewayName(strings.ToLower(strings.TrimSpace(value))) {
	case GatewayRazorpay:
		return GatewayRazorpay, nil
	case GatewayStripe:
		return GatewayStripe, nil
	case GatewayPayPal:
		return GatewayPayPal, nil
	default:
		return "", fmt.Errorf("settings: unsupported gateway %q", value)
	}
}

// GatewaySettings is the admin-owned configuration row for a gateway. It is
// read-only here; the admin console mutates it. KeyID is the public/client
// identifier (Razorpay key id, Stripe publishable key, PayPal client id) and
// KeySecret the private credential. KeySecret must never leave the process in
// a response body or a log line.
type GatewaySettings struct {
	Gateway   GatewayName
	KeyID     string
	KeySecret string
	TestMode  bool
	Enabled   bool
	UpdatedAt time.Time
}
