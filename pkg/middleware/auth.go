package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	emailKey    contextKeyType = "email"
	deviceIDKey contextKeyType = "device_id"
	tokenKey    contextKeyType = "token"
)

// DeviceIDHeader is the header clients use to present their opaque device identifier.
const DeviceIDHeader = "X-Device-ID"

// Claims represents the identity extracted by the auth middleware.
type Claims struct {
	Email string `json:"email"`
}

// TokenValidator validates a bearer token together with the presented device ID
// and returns the claims. The service injects its own session validation logic.
type TokenValidator func(ctx context.Context, token, deviceID string) (*Claims, error)

// Auth middleware validates bearer tokens and injects identity into context.
// Every failure maps to the same opaque 401 body.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w)
				return
			}

			deviceID := r.Header.Get(DeviceIDHeader)

			claims, err := validate(r.Context(), parts[1], deviceID)
			if err != nil {
				writeAuthError(w)
				return
			}

			ctx := context.WithValue(r.Context(), emailKey, claims.Email)
			ctx = context.WithValue(ctx, deviceIDKey, deviceID)
			ctx = context.WithValue(ctx, tokenKey, parts[1])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext extracts the authenticated email from the request context.
// ok is false when the request did not pass the auth middleware.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// DeviceIDFromContext extracts the presented device ID from the request context.
func DeviceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(deviceIDKey).(string); ok {
		return id
	}
	return ""
}

// TokenFromContext extracts the raw bearer token from the request context.
func TokenFromContext(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey).(string); ok {
		return tok
	}
	return ""
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": "invalid or expired session",
	})
}
