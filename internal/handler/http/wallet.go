package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cryptpayme/twofa/internal/service"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
	"github.com/cryptpayme/twofa/pkg/middleware"
	"github.com/cryptpayme/twofa/pkg/validator"
)

// WalletHandler handles HTTP requests for wallet linking.
type WalletHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewWalletHandler creates a new wallet HTTP handler.
func NewWalletHandler(svc *service.AuthService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{service: svc, logger: logger}
}

// LinkWalletRequest is the JSON request body for linking a wallet.
type LinkWalletRequest struct {
	Wallet string `json:"wallet" validate:"required"`
}

// Link handles POST /api/v1/wallets/link. The wallet is linked to the
// authenticated caller's profile.
func (h *WalletHandler) Link(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		writeAppError(w, r, apperrors.Unauthorized(apperrors.ErrUnauthorized), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LinkWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	profile, err := h.service.LinkWallet(r.Context(), email, req.Wallet)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: profile})
}

// List handles GET /api/v1/wallets, returning the authenticated caller's
// linked wallets.
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		writeAppError(w, r, apperrors.Unauthorized(apperrors.ErrUnauthorized), h.logger)
		return
	}

	profile, err := h.service.Profile(r.Context(), email)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]any{
		"email":   profile.Email,
		"wallets": profile.Wallets,
	}})
}
