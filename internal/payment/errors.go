package payment

import (
	"net/http"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/common"
)

// Error codes returned by the payment endpoints.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeGatewayNotConfigured = "GATEWAY_NOT_CONFIGURED"
	CodeUnsupportedGateway   = "UNSUPPORTED_GATEWAY"
	CodeGatewayRequestFailed = "GATEWAY_REQUEST_FAILED"
	CodeOrderUpdateFailed    = "ORDER_UPDATE_FAILED"
)

func errBadRequest(message string, err error) *common.AppError {
	return common.NewAppError(CodeBadRequest, message, http.StatusBadRequest, err)
}

func errGatewayNotConfigured() *common.AppError {
	return common.NewAppError(CodeGatewayNotConfigured, "no payment gateway configured", http.StatusBadRequest, nil)
}

func errUnsupportedGateway(name string) *common.AppError {
	return common.NewAppError(CodeUnsupportedGateway, "unsupported payment gateway", http.StatusBadRequest, nil).
		WithDetails(map[string]string{"gateway": name})
}

func errGatewayRequestFailed(err error) *common.AppError {
	return common.NewAppError(CodeGatewayRequestFailed, "payment gateway request failed", http.StatusInternalServerError, err)
}

func errOrderUpdateFailed(status int, message string, err error) *common.AppError {
	return common.NewAppError(CodeOrderUpdateFailed, message, status, err)
}
