package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cryptpayme/twofa/internal/domain"
	"github.com/cryptpayme/twofa/internal/repository"
	"github.com/cryptpayme/twofa/internal/sender"
	"github.com/cryptpayme/twofa/internal/token"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
)

// bcryptCost is the cost factor for hashing one-time codes. Codes live for
// minutes, so a moderate cost keeps request latency reasonable.
const bcryptCost = 10

// Config holds the tunable policy knobs for the auth service.
type Config struct {
	OtpTTL        time.Duration
	MaxAttempts   int
	SessionMaxAge time.Duration
	RefreshExpiry time.Duration
}

// DefaultConfig returns the default auth policy.
func DefaultConfig() Config {
	return Config{
		OtpTTL:        5 * time.Minute,
		MaxAttempts:   5,
		SessionMaxAge: 15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
}

// EventPublisher publishes domain events; satisfied by event.Producer.
type EventPublisher interface {
	PublishOtpRequested(ctx context.Context, email, senderName string, expiresAt time.Time) error
	PublishOtpVerified(ctx context.Context, email, deviceID string) error
	PublishWalletLinked(ctx context.Context, email, wallet string) error
	PublishLogout(ctx context.Context, email string) error
}

// AuthService implements the OTP, session, and wallet-linking business logic.
type AuthService struct {
	challengeRepo repository.ChallengeRepository
	profileRepo   repository.ProfileRepository
	refreshRepo   repository.RefreshTokenRepository
	jwtManager    *token.JWTManager
	sender        sender.Sender
	producer      EventPublisher
	cfg           Config
	logger        *slog.Logger

	// now is swappable so expiry boundaries can be tested deterministically.
	now func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	challengeRepo repository.ChallengeRepository,
	profileRepo repository.ProfileRepository,
	refreshRepo repository.RefreshTokenRepository,
	jwtManager *token.JWTManager,
	otpSender sender.Sender,
	producer EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		challengeRepo: challengeRepo,
		profileRepo:   profileRepo,
		refreshRepo:   refreshRepo,
		jwtManager:    jwtManager,
		sender:        otpSender,
		producer:      producer,
		cfg:           cfg,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RequestOTPInput holds the parameters for requesting a one-time code.
type RequestOTPInput struct {
	Email     string
	DeviceID  string
	UserAgent string
}

// VerifyOTPInput holds the parameters for verifying a one-time code.
type VerifyOTPInput struct {
	Email     string
	Code      string
	DeviceID  string
	UserAgent string
}

// VerifyOTPResult is returned on successful verification.
type VerifyOTPResult struct {
	Profile *domain.Profile
	Tokens  *domain.TokenPair
}

// RequestOTP generates a fresh 6-digit code for the email, stores its bcrypt
// hash with a TTL, and dispatches the plaintext code through the configured
// sender. Any pending code for the email is replaced and its attempt counter
// reset. If delivery fails the stored challenge stays valid, but the error is
// surfaced so the caller can retry the whole request.
func (s *AuthService) RequestOTP(ctx context.Context, input RequestOTPInput) error {
	if input.Email == "" {
		return apperrors.InvalidInput("email is required")
	}
	// The challenge is keyed by the email exactly as submitted; lowercasing
	// happens only when the profile is created at verification.
	email := input.Email

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := s.now()
	challenge := &domain.OtpChallenge{
		Email:      email,
		SecretHash: string(hash),
		ExpiresAt:  now.Add(s.cfg.OtpTTL),
		CreatedAt:  now,
	}

	if err := s.challengeRepo.Replace(ctx, challenge); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	msg := &sender.Message{
		To:      email,
		Subject: "Your Crypt PayMe verification code",
		Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
			code, int(s.cfg.OtpTTL.Minutes())),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		// The challenge stays stored; a retry will replace it anyway.
		s.logger.ErrorContext(ctx, "failed to deliver code",
			slog.String("email", email),
			slog.String("sender", s.sender.Name()),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperrors.ErrDeliveryFailed) {
			return err
		}
		return apperrors.DeliveryFailed(err)
	}

	if err := s.producer.PublishOtpRequested(ctx, email, s.sender.Name(), challenge.ExpiresAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish otp.requested event",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "otp requested",
		slog.String("email", email),
	)

	return nil
}

// VerifyOTP checks a submitted code against the pending challenge. The
// attempt limit is checked before the hash comparison; only mismatches
// consume attempts. On a match the challenge is deleted (single use), the
// profile is created or re-verified, and a fresh token pair is issued.
func (s *AuthService) VerifyOTP(ctx context.Context, input VerifyOTPInput) (*VerifyOTPResult, error) {
	if input.Email == "" || input.Code == "" {
		return nil, apperrors.InvalidInput("email and code are required")
	}
	// Challenge lookups use the email as submitted; it must match the
	// request-otp spelling exactly.
	email := input.Email

	challenge, err := s.challengeRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCode(apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	now := s.now()
	if challenge.Expired(now) {
		if err := s.challengeRepo.Delete(ctx, email); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired challenge",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.InvalidCode(apperrors.ErrExpired)
	}

	attempts, err := s.challengeRepo.GetAttempts(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get attempts: %w", err)
	}
	if attempts >= s.cfg.MaxAttempts {
		return nil, apperrors.TooManyAttempts()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(challenge.SecretHash), []byte(input.Code)); err != nil {
		if _, incErr := s.challengeRepo.IncrementAttempts(ctx, email); incErr != nil {
			s.logger.ErrorContext(ctx, "failed to record attempt",
				slog.String("email", email),
				slog.String("error", incErr.Error()),
			)
		}
		return nil, apperrors.InvalidCode(apperrors.ErrInvalidCode)
	}

	// Single use: the challenge is gone before any tokens exist.
	if err := s.challengeRepo.Delete(ctx, email); err != nil {
		return nil, fmt.Errorf("delete consumed challenge: %w", err)
	}

	profileEmail := domain.NormalizeEmail(email)
	profile, err := s.profileRepo.UpsertVerified(ctx, profileEmail, input.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	tokens, err := s.issueTokens(ctx, profileEmail)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishOtpVerified(ctx, profileEmail, input.DeviceID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish otp.verified event",
			slog.String("email", profileEmail),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "otp verified",
		slog.String("email", profileEmail),
	)

	return &VerifyOTPResult{Profile: profile, Tokens: tokens}, nil
}

// ValidateSession checks an access token and the session policy around it,
// returning the profile on success. All failure kinds collapse into one
// opaque unauthorized error so callers cannot distinguish a bad signature
// from a stale session or a foreign device.
func (s *AuthService) ValidateSession(ctx context.Context, tokenString, deviceID string) (*domain.Profile, error) {
	if tokenString == "" {
		return nil, apperrors.Unauthorized(apperrors.ErrUnauthorized)
	}

	claims, err := s.jwtManager.ValidateAccessToken(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, apperrors.Unauthorized(apperrors.ErrSessionExpired)
		}
		return nil, apperrors.Unauthorized(apperrors.ErrInvalidToken)
	}

	profile, err := s.profileRepo.GetByEmail(ctx, domain.NormalizeEmail(claims.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	// A profile without a verification timestamp cannot prove session
	// freshness, so it is rejected rather than treated as just verified.
	if profile.VerifiedAt == nil {
		return nil, apperrors.Unauthorized(apperrors.ErrSessionExpired)
	}
	if s.now().Sub(*profile.VerifiedAt) > s.cfg.SessionMaxAge {
		return nil, apperrors.Unauthorized(apperrors.ErrSessionExpired)
	}

	// Device binding only applies when both sides name a device.
	if profile.DeviceID != "" && deviceID != "" && profile.DeviceID != deviceID {
		return nil, apperrors.Unauthorized(apperrors.ErrDeviceMismatch)
	}

	return profile, nil
}

// Refresh redeems a refresh token for a new token pair. The old token is
// revoked so each refresh token is single use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	tokenHash := token.HashRefreshToken(refreshToken)
	stored, err := s.refreshRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized(apperrors.ErrInvalidToken)
	}

	if !stored.Valid(s.now()) {
		return nil, apperrors.Unauthorized(apperrors.ErrSessionExpired)
	}

	if err := s.refreshRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke redeemed refresh token",
			slog.String("email", stored.Email),
			slog.String("error", err.Error()),
		)
	}

	tokens, err := s.issueTokens(ctx, stored.Email)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("email", stored.Email),
	)

	return tokens, nil
}

// Logout revokes all refresh tokens for the email. Revocation failures are
// logged but the call still succeeds: the caller clears its local session
// state regardless, which is the behavior users observe.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}
	email = domain.NormalizeEmail(email)

	if err := s.refreshRepo.RevokeByEmail(ctx, email); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens at logout",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishLogout(ctx, email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish auth.logout event",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// LinkWallet links a wallet address to the profile for the email. Linking is
// idempotent: relinking an already linked wallet returns the profile
// unchanged. The profile is created if it does not exist yet.
func (s *AuthService) LinkWallet(ctx context.Context, email, wallet string) (*domain.Profile, error) {
	if email == "" || wallet == "" {
		return nil, apperrors.InvalidInput("email and wallet are required")
	}
	if !domain.IsValidWallet(wallet) {
		return nil, apperrors.InvalidInput("invalid wallet address")
	}
	email = domain.NormalizeEmail(email)
	wallet = domain.NormalizeWallet(wallet)

	profile, err := s.profileRepo.LinkWallet(ctx, email, wallet)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("link wallet: %w", err)
		}
		// First contact for this email: create the profile, then link.
		if _, err := s.profileRepo.UpsertVerified(ctx, email, ""); err != nil {
			return nil, fmt.Errorf("create profile for wallet link: %w", err)
		}
		profile, err = s.profileRepo.LinkWallet(ctx, email, wallet)
		if err != nil {
			return nil, fmt.Errorf("link wallet: %w", err)
		}
	}

	if err := s.producer.PublishWalletLinked(ctx, email, wallet); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish wallet.linked event",
			slog.String("email", email),
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wallet linked",
		slog.String("email", email),
		slog.String("wallet", wallet),
	)

	return profile, nil
}

// Profile returns the profile for an email.
func (s *AuthService) Profile(ctx context.Context, email string) (*domain.Profile, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	return s.profileRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
}

// issueTokens produces an access token plus a persisted refresh token.
func (s *AuthService) issueTokens(ctx context.Context, email string) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := token.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &domain.RefreshToken{
		ID:        uuid.New().String(),
		Email:     email,
		TokenHash: token.HashRefreshToken(refreshToken),
		ExpiresAt: now.Add(s.cfg.RefreshExpiry),
		CreatedAt: now,
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// generateCode draws a uniform 6-digit decimal code from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
