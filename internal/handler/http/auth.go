package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cryptpayme/twofa/internal/service"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
	pkglogger "github.com/cryptpayme/twofa/pkg/logger"
	"github.com/cryptpayme/twofa/pkg/middleware"
	"github.com/cryptpayme/twofa/pkg/validator"
)

// AuthHandler handles HTTP requests for the OTP and session endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RequestOTPRequest is the JSON request body for requesting a code.
type RequestOTPRequest struct {
	Email     string `json:"email" validate:"required,email"`
	DeviceID  string `json:"device_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// VerifyOTPRequest is the JSON request body for verifying a code. The wallet
// address is required: verification and the first wallet link happen in one
// step.
type VerifyOTPRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Code          string `json:"code" validate:"required,len=6,numeric"`
	WalletAddress string `json:"wallet_address" validate:"required"`
	DeviceID      string `json:"device_id,omitempty"`
}

// RefreshRequest is the JSON request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// --- Response types ---

// AuthResponse wraps a profile with its issued tokens.
type AuthResponse struct {
	Profile any `json:"profile"`
	Tokens  any `json:"tokens"`
}

// --- Handlers ---

// RequestOTP handles POST /api/v1/auth/request-otp
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RequestOTPRequest
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

	input := service.RequestOTPInput{
		Email:     req.Email,
		DeviceID:  deviceID(r, req.DeviceID),
		UserAgent: r.UserAgent(),
	}

	if err := h.service.RequestOTP(r.Context(), input); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	// The response shape never reveals whether the email is registered.
	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"status": "sent"},
	})
}

// VerifyOTP handles POST /api/v1/auth/verify-otp. On success the submitted
// wallet is linked to the freshly verified profile before tokens are
// returned.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req VerifyOTPRequest
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

	input := service.VerifyOTPInput{
		Email:     req.Email,
		Code:      req.Code,
		DeviceID:  deviceID(r, req.DeviceID),
		UserAgent: r.UserAgent(),
	}

	result, err := h.service.VerifyOTP(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.LinkWallet(r.Context(), req.Email, req.WalletAddress)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: AuthResponse{
			Profile: profile,
			Tokens:  result.Tokens,
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RefreshRequest
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

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]any{"tokens": tokens}})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		writeAppError(w, r, apperrors.Unauthorized(apperrors.ErrUnauthorized), h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), email); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "logged_out"}})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, response{Data: profile})
}

// deviceID resolves the caller's device identifier, preferring the header
// over the body field.
func deviceID(r *http.Request, bodyValue string) string {
	if id := r.Header.Get(middleware.DeviceIDHeader); id != "" {
		return id
	}
	return bodyValue
}

// --- Shared response helpers ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error, l *slog.Logger) {
	l = pkglogger.WithContext(r.Context(), l)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= 500 {
			l.ErrorContext(r.Context(), "request failed",
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = "UNAUTHORIZED"
		message = "invalid or expired session"
	}

	if status >= 500 {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
