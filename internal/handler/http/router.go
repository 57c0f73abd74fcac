package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cryptpayme/twofa/internal/service"
	"github.com/cryptpayme/twofa/pkg/health"
	"github.com/cryptpayme/twofa/pkg/middleware"
)

// NewRouter creates a chi router with all service routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("twofa"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Session validation bridges the auth middleware to the service: every
	// authenticated request re-checks the session policy, not just the JWT.
	tokenValidator := func(ctx context.Context, token, deviceID string) (*middleware.Claims, error) {
		profile, err := authService.ValidateSession(ctx, token, deviceID)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{Email: profile.Email}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	walletHandler := NewWalletHandler(authService, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public endpoints
		r.Post("/request-otp", authHandler.RequestOTP)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/refresh", authHandler.Refresh)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/api/v1/wallets", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", walletHandler.List)
		r.Post("/link", walletHandler.Link)
	})

	return r
}
