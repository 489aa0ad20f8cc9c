package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhadauriyagspt/cartrix.shop-sub000/internal/common"
)

// Handler exposes the payment endpoints.
type Handler struct {
	Intents  *IntentService
	Verifier *VerifyService
}

// Routes mounts the payment endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/intent", h.CreateIntent)
	r.Post("/verify", h.Verify)
	return r
}

// CreateIntent handles POST /payments/intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body", nil)
		return
	}
	resp, err := h.Intents.CreateIntent(r.Context(), req)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

// Verify handles POST /payments/verify. A rejected verification is a 400 with
// the verify envelope rather than an error envelope.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body", nil)
		return
	}
	resp, err := h.Verifier.Verify(r.Context(), req)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	if !resp.Verified {
		common.JSON(w, http.StatusBadRequest, resp)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}
