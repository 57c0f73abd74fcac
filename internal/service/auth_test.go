package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cryptpayme/twofa/internal/domain"
	redisrepo "github.com/cryptpayme/twofa/internal/repository/redis"
	"github.com/cryptpayme/twofa/internal/sender"
	"github.com/cryptpayme/twofa/internal/token"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
)

const testEmail = "alice@example.com"

// --- Mock Profile Repository ---

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) UpsertVerified(ctx context.Context, email, deviceID string) (*domain.Profile, error) {
	args := m.Called(ctx, email, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) LinkWallet(ctx context.Context, email, wallet string) (*domain.Profile, error) {
	args := m.Called(ctx, email, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeByEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOtpRequested(ctx context.Context, email, senderName string, expiresAt time.Time) error {
	args := m.Called(ctx, email, senderName, expiresAt)
	return args.Error(0)
}

func (m *mockPublisher) PublishOtpVerified(ctx context.Context, email, deviceID string) error {
	args := m.Called(ctx, email, deviceID)
	return args.Error(0)
}

func (m *mockPublisher) PublishWalletLinked(ctx context.Context, email, wallet string) error {
	args := m.Called(ctx, email, wallet)
	return args.Error(0)
}

func (m *mockPublisher) PublishLogout(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func newRelaxedPublisher() *mockPublisher {
	pub := &mockPublisher{}
	pub.On("PublishOtpRequested", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishOtpVerified", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishWalletLinked", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishLogout", mock.Anything, mock.Anything).Return(nil).Maybe()
	return pub
}

// --- Capturing / failing senders ---

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

type captureSender struct {
	messages []*sender.Message
}

func (s *captureSender) Name() string { return "capture" }

func (s *captureSender) Send(_ context.Context, msg *sender.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

// lastCode extracts the 6-digit code from the most recent message.
func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, s.messages)
	match := codeRe.FindString(s.messages[len(s.messages)-1].Body)
	require.NotEmpty(t, match, "no code in message body")
	return match
}

type failingSender struct{}

func (failingSender) Name() string { return "failing" }

func (failingSender) Send(context.Context, *sender.Message) error {
	return apperrors.DeliveryFailed(io.ErrUnexpectedEOF)
}

// --- Fixture ---

type authFixture struct {
	svc         *AuthService
	sender      *captureSender
	profileRepo *mockProfileRepository
	refreshRepo *mockRefreshTokenRepository
	publisher   *mockPublisher
	redis       *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultConfig()
	f := &authFixture{
		sender:      &captureSender{},
		profileRepo: &mockProfileRepository{},
		refreshRepo: &mockRefreshTokenRepository{},
		publisher:   newRelaxedPublisher(),
		redis:       mr,
	}
	f.svc = NewAuthService(
		redisrepo.NewChallengeRepository(client, cfg.OtpTTL),
		f.profileRepo,
		f.refreshRepo,
		token.NewJWTManager("test-secret-key-for-unit-tests-only", 15*time.Minute),
		f.sender,
		f.publisher,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func verifiedProfile(email string) *domain.Profile {
	now := time.Now().UTC()
	return &domain.Profile{
		Email:      email,
		Wallets:    []string{},
		VerifiedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ============================================================================
// RequestOTP
// ============================================================================

func TestRequestOTP_MissingEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestOTP(context.Background(), RequestOTPInput{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRequestOTP_SendsSixDigitCode(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(context.Background(), RequestOTPInput{Email: "Alice@Example.COM"}))

	require.Len(t, f.sender.messages, 1)
	assert.Equal(t, "Alice@Example.COM", f.sender.messages[0].To, "recipient is the email as submitted")
	code := f.sender.lastCode(t)
	assert.GreaterOrEqual(t, code, "100000")
	assert.LessOrEqual(t, code, "999999")
}

func TestRequestOTP_DeliveryFailureKeepsChallenge(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.sender = failingSender{}

	err := f.svc.RequestOTP(context.Background(), RequestOTPInput{Email: testEmail})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDeliveryFailed)

	// The challenge survives the failed send so a later verify with the
	// (undelivered) code would still work.
	assert.True(t, f.redis.Exists("otp:"+testEmail))
}

// ============================================================================
// VerifyOTP
// ============================================================================

func requestAndGetCode(t *testing.T, f *authFixture, email string) string {
	t.Helper()
	require.NoError(t, f.svc.RequestOTP(context.Background(), RequestOTPInput{Email: email}))
	return f.sender.lastCode(t)
}

func TestVerifyOTP_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	code := requestAndGetCode(t, f, testEmail)

	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "device-1").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RefreshToken")).
		Return(nil).Once()

	result, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code, DeviceID: "device-1"})
	require.NoError(t, err)
	assert.Equal(t, testEmail, result.Profile.Email)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.Len(t, result.Tokens.RefreshToken, 64)

	f.profileRepo.AssertExpectations(t)
	f.refreshRepo.AssertExpectations(t)
}

func TestVerifyOTP_MissingInput(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: testEmail})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.VerifyOTP(context.Background(), VerifyOTPInput{Code: "123456"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestVerifyOTP_NoChallenge(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: testEmail, Code: "123456"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	code := requestAndGetCode(t, f, testEmail)

	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code})
	require.NoError(t, err)

	// The same code again must find no challenge.
	_, err = f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerifyOTP_EmailCaseMustMatchRequest(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Challenges are keyed by the email exactly as submitted, so a
	// case-variant spelling finds no challenge.
	code := requestAndGetCode(t, f, "Alice@Example.COM")

	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: "alice@example.com", Code: code})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The exact spelling verifies, and the profile is created lowercased.
	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: "Alice@Example.COM", Code: code})
	require.NoError(t, err)
	assert.Equal(t, testEmail, result.Profile.Email)
}

func TestRequestOTP_CaseVariantsDoNotSupersede(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(context.Background(), RequestOTPInput{Email: "Alice@Example.COM"}))
	require.NoError(t, f.svc.RequestOTP(context.Background(), RequestOTPInput{Email: testEmail}))

	assert.True(t, f.redis.Exists("otp:Alice@Example.COM"))
	assert.True(t, f.redis.Exists("otp:"+testEmail))
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newAuthFixture(t)

	code := requestAndGetCode(t, f, testEmail)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, err := f.svc.VerifyOTP(context.Background(), VerifyOTPInput{Email: testEmail, Code: wrong})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
}

func TestVerifyOTP_LockoutAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	code := requestAndGetCode(t, f, testEmail)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < f.svc.cfg.MaxAttempts; i++ {
		_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: wrong})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCode, "attempt %d", i+1)
	}

	// Locked now: even the correct code is rejected before comparison.
	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code})
	assert.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
}

func TestVerifyOTP_NewRequestClearsLockout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	code := requestAndGetCode(t, f, testEmail)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	for i := 0; i < f.svc.cfg.MaxAttempts; i++ {
		_, _ = f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: wrong})
	}

	// A fresh request replaces the challenge and resets the counter.
	newCode := requestAndGetCode(t, f, testEmail)

	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: newCode})
	assert.NoError(t, err)
}

func TestVerifyOTP_ReplaceSupersedesOldCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	oldCode := requestAndGetCode(t, f, testEmail)
	newCode := requestAndGetCode(t, f, testEmail)

	if oldCode != newCode {
		_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: oldCode})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCode, "superseded code must not verify")
	}

	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: newCode})
	assert.NoError(t, err)
}

func TestVerifyOTP_ExpiryBoundary(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	base := time.Now().UTC()
	f.svc.now = func() time.Time { return base }

	code := requestAndGetCode(t, f, testEmail)

	// Just inside the window: succeeds.
	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	f.svc.now = func() time.Time { return base.Add(f.svc.cfg.OtpTTL - time.Millisecond) }

	_, err := f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code})
	require.NoError(t, err)

	// Just past the window: expired, and the challenge is deleted.
	f.svc.now = func() time.Time { return base }
	code = requestAndGetCode(t, f, testEmail)
	f.svc.now = func() time.Time { return base.Add(f.svc.cfg.OtpTTL + time.Millisecond) }

	_, err = f.svc.VerifyOTP(ctx, VerifyOTPInput{Email: testEmail, Code: code})
	assert.ErrorIs(t, err, apperrors.ErrExpired)
	assert.False(t, f.redis.Exists("otp:"+testEmail))
}

// ============================================================================
// ValidateSession
// ============================================================================

func issueAccessToken(t *testing.T, f *authFixture) string {
	t.Helper()
	tok, err := f.svc.jwtManager.GenerateAccessToken(testEmail)
	require.NoError(t, err)
	return tok
}

func TestValidateSession_Success(t *testing.T) {
	f := newAuthFixture(t)

	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).
		Return(verifiedProfile(testEmail), nil).Once()

	profile, err := f.svc.ValidateSession(context.Background(), issueAccessToken(t, f), "")
	require.NoError(t, err)
	assert.Equal(t, testEmail, profile.Email)
}

func TestValidateSession_NoToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ValidateSession(context.Background(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestValidateSession_BadToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ValidateSession(context.Background(), "not.a.token", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.Equal(t, 401, apperrors.HTTPStatus(err))
}

func TestValidateSession_ProfileMissing(t *testing.T) {
	f := newAuthFixture(t)

	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).
		Return(nil, apperrors.NotFound("profile", testEmail)).Once()

	_, err := f.svc.ValidateSession(context.Background(), issueAccessToken(t, f), "")
	// Collapsed to the uniform unauthorized shape, not a 404.
	assert.Equal(t, 401, apperrors.HTTPStatus(err))
}

func TestValidateSession_SessionAgeIndependentOfTokenExpiry(t *testing.T) {
	f := newAuthFixture(t)

	// The JWT itself is still valid, but the verification is older than the
	// session policy allows.
	stale := time.Now().UTC().Add(-f.svc.cfg.SessionMaxAge - time.Minute)
	profile := verifiedProfile(testEmail)
	profile.VerifiedAt = &stale

	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(profile, nil).Once()

	_, err := f.svc.ValidateSession(context.Background(), issueAccessToken(t, f), "")
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, 401, apperrors.HTTPStatus(err))
}

func TestValidateSession_MissingVerifiedAtFailsClosed(t *testing.T) {
	f := newAuthFixture(t)

	profile := verifiedProfile(testEmail)
	profile.VerifiedAt = nil

	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(profile, nil).Once()

	_, err := f.svc.ValidateSession(context.Background(), issueAccessToken(t, f), "")
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestValidateSession_DeviceBinding(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	bound := verifiedProfile(testEmail)
	bound.DeviceID = "device-1"

	// Same device: accepted.
	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(bound, nil).Once()
	_, err := f.svc.ValidateSession(ctx, issueAccessToken(t, f), "device-1")
	assert.NoError(t, err)

	// Different device: rejected.
	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(bound, nil).Once()
	_, err = f.svc.ValidateSession(ctx, issueAccessToken(t, f), "device-2")
	assert.ErrorIs(t, err, apperrors.ErrDeviceMismatch)
	assert.Equal(t, 401, apperrors.HTTPStatus(err))

	// Caller presents no device: binding not enforced.
	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(bound, nil).Once()
	_, err = f.svc.ValidateSession(ctx, issueAccessToken(t, f), "")
	assert.NoError(t, err)

	// Profile has no binding: any device accepted.
	unbound := verifiedProfile(testEmail)
	f.profileRepo.On("GetByEmail", mock.Anything, testEmail).Return(unbound, nil).Once()
	_, err = f.svc.ValidateSession(ctx, issueAccessToken(t, f), "device-2")
	assert.NoError(t, err)
}

// ============================================================================
// Refresh
// ============================================================================

func TestRefresh_Success(t *testing.T) {
	f := newAuthFixture(t)

	raw, err := token.GenerateRefreshToken()
	require.NoError(t, err)
	hash := token.HashRefreshToken(raw)

	stored := &domain.RefreshToken{
		ID:        "rt-1",
		Email:     testEmail,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}

	f.refreshRepo.On("GetByHash", mock.Anything, hash).Return(stored, nil).Once()
	f.refreshRepo.On("Revoke", mock.Anything, hash).Return(nil).Once()
	f.refreshRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	tokens, err := f.svc.Refresh(context.Background(), raw)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, raw, tokens.RefreshToken, "refresh rotates the token")
	f.refreshRepo.AssertExpectations(t)
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	f.refreshRepo.On("GetByHash", mock.Anything, mock.Anything).
		Return(nil, apperrors.NotFound("refresh token", "x")).Once()

	_, err := f.svc.Refresh(context.Background(), "bogus")
	assert.Equal(t, 401, apperrors.HTTPStatus(err))
}

func TestRefresh_RevokedToken(t *testing.T) {
	f := newAuthFixture(t)

	raw, err := token.GenerateRefreshToken()
	require.NoError(t, err)
	revoked := time.Now().UTC()
	stored := &domain.RefreshToken{
		Email:     testEmail,
		TokenHash: token.HashRefreshToken(raw),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		RevokedAt: &revoked,
	}

	f.refreshRepo.On("GetByHash", mock.Anything, stored.TokenHash).Return(stored, nil).Once()

	_, err = f.svc.Refresh(context.Background(), raw)
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_Success(t *testing.T) {
	f := newAuthFixture(t)

	f.refreshRepo.On("RevokeByEmail", mock.Anything, testEmail).Return(nil).Once()

	assert.NoError(t, f.svc.Logout(context.Background(), testEmail))
	f.refreshRepo.AssertExpectations(t)
}

func TestLogout_RevocationFailureStillSucceeds(t *testing.T) {
	f := newAuthFixture(t)

	f.refreshRepo.On("RevokeByEmail", mock.Anything, testEmail).
		Return(assert.AnError).Once()

	// Logout degrades to a no-op success rather than stranding the caller.
	assert.NoError(t, f.svc.Logout(context.Background(), testEmail))
}

// ============================================================================
// LinkWallet
// ============================================================================

const testWallet = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"

func TestLinkWallet_Success(t *testing.T) {
	f := newAuthFixture(t)

	linked := verifiedProfile(testEmail)
	linked.Wallets = []string{testWallet}

	f.profileRepo.On("LinkWallet", mock.Anything, testEmail, testWallet).
		Return(linked, nil).Once()

	profile, err := f.svc.LinkWallet(context.Background(), testEmail, testWallet)
	require.NoError(t, err)
	assert.Contains(t, profile.Wallets, testWallet)
}

func TestLinkWallet_NormalizesInputs(t *testing.T) {
	f := newAuthFixture(t)

	linked := verifiedProfile(testEmail)
	linked.Wallets = []string{testWallet}

	f.profileRepo.On("LinkWallet", mock.Anything, testEmail, testWallet).
		Return(linked, nil).Once()

	_, err := f.svc.LinkWallet(context.Background(), "Alice@Example.COM",
		"0xDE0B295669a9FD93d5F28D9Ec85E40f4cb697BAe")
	require.NoError(t, err)
	f.profileRepo.AssertExpectations(t)
}

func TestLinkWallet_InvalidWallet(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.LinkWallet(context.Background(), testEmail, "0x1234")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLinkWallet_CreatesProfileWhenMissing(t *testing.T) {
	f := newAuthFixture(t)

	linked := verifiedProfile(testEmail)
	linked.Wallets = []string{testWallet}

	f.profileRepo.On("LinkWallet", mock.Anything, testEmail, testWallet).
		Return(nil, apperrors.NotFound("profile", testEmail)).Once()
	f.profileRepo.On("UpsertVerified", mock.Anything, testEmail, "").
		Return(verifiedProfile(testEmail), nil).Once()
	f.profileRepo.On("LinkWallet", mock.Anything, testEmail, testWallet).
		Return(linked, nil).Once()

	profile, err := f.svc.LinkWallet(context.Background(), testEmail, testWallet)
	require.NoError(t, err)
	assert.Contains(t, profile.Wallets, testWallet)
	f.profileRepo.AssertExpectations(t)
}
