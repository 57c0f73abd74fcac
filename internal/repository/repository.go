package repository

import (
	"context"

	"github.com/cryptpayme/twofa/internal/domain"
)

// ChallengeRepository defines the interface for OTP challenge storage.
// Implementations must make Replace atomic: the new challenge supersedes any
// pending one for the same email and the attempt counter resets.
type ChallengeRepository interface {
	// Replace stores a challenge for the email, discarding any pending
	// challenge and resetting the attempt counter.
	Replace(ctx context.Context, challenge *domain.OtpChallenge) error

	// Get retrieves the pending challenge for an email.
	Get(ctx context.Context, email string) (*domain.OtpChallenge, error)

	// Delete removes the pending challenge and attempt counter for an email.
	Delete(ctx context.Context, email string) error

	// IncrementAttempts records a verification attempt and returns the new
	// attempt count.
	IncrementAttempts(ctx context.Context, email string) (int, error)

	// GetAttempts returns the current attempt count for an email.
	GetAttempts(ctx context.Context, email string) (int, error)
}

// ProfileRepository defines the interface for identity profile persistence.
type ProfileRepository interface {
	// GetByEmail retrieves a profile by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)

	// UpsertVerified creates the profile if missing and stamps verified_at
	// with the current time. A non-empty deviceID binds the profile to that
	// device; an existing binding is preserved when deviceID is empty.
	UpsertVerified(ctx context.Context, email, deviceID string) (*domain.Profile, error)

	// LinkWallet appends the wallet to the profile's wallet list if not
	// already present and returns the updated profile.
	LinkWallet(ctx context.Context, email, wallet string) (*domain.Profile, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash retrieves a refresh token by its SHA-256 hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke marks a single refresh token as revoked.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByEmail revokes all outstanding refresh tokens for an email.
	RevokeByEmail(ctx context.Context, email string) error
}
