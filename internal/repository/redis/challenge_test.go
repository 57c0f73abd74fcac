package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptpayme/twofa/internal/domain"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
)

func setupTestRedis(t *testing.T) (*ChallengeRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewChallengeRepository(client, 5*time.Minute)
	return repo, mr
}

func sampleChallenge(email string) *domain.OtpChallenge {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.OtpChallenge{
		Email:      email,
		SecretHash: "$2a$10$abcdefghijklmnopqrstuv",
		ExpiresAt:  now.Add(5 * time.Minute),
		CreatedAt:  now,
	}
}

// ---------------------------------------------------------------------------
// Replace / Get
// ---------------------------------------------------------------------------

func TestChallengeRepository_ReplaceAndGet(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	ch := sampleChallenge("user@example.com")
	require.NoError(t, repo.Replace(ctx, ch))

	got, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, ch.Email, got.Email)
	assert.Equal(t, ch.SecretHash, got.SecretHash)
	assert.True(t, ch.ExpiresAt.Equal(got.ExpiresAt))
}

func TestChallengeRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChallengeRepository_Replace_ResetsAttempts(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleChallenge("user@example.com")))
	for i := 0; i < 3; i++ {
		_, err := repo.IncrementAttempts(ctx, "user@example.com")
		require.NoError(t, err)
	}

	count, err := repo.GetAttempts(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Replacing the challenge must reset the counter.
	require.NoError(t, repo.Replace(ctx, sampleChallenge("user@example.com")))

	count, err = repo.GetAttempts(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChallengeRepository_Replace_SetsTTLWithGrace(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, repo.Replace(context.Background(), sampleChallenge("user@example.com")))

	ttl := mr.TTL("otp:user@example.com")
	assert.Equal(t, 5*time.Minute+expiryGrace, ttl)
}

func TestChallengeRepository_Get_WithinGraceWindow(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	ch := sampleChallenge("user@example.com")
	require.NoError(t, repo.Replace(ctx, ch))

	// Past the challenge's own expiry but inside the grace margin the key
	// is still readable, so callers see the stale challenge rather than
	// nothing at all.
	mr.FastForward(5*time.Minute + time.Second)

	got, err := repo.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, ch.ExpiresAt.Equal(got.ExpiresAt))
}

func TestChallengeRepository_Get_AfterTTLExpiry(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleChallenge("user@example.com")))

	mr.FastForward(5*time.Minute + expiryGrace + time.Second)

	_, err := repo.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestChallengeRepository_Delete(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, sampleChallenge("user@example.com")))
	_, err := repo.IncrementAttempts(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "user@example.com"))

	_, err = repo.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	count, err := repo.GetAttempts(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChallengeRepository_Delete_Missing(t *testing.T) {
	repo, _ := setupTestRedis(t)

	// Deleting a non-existent challenge is not an error.
	assert.NoError(t, repo.Delete(context.Background(), "missing@example.com"))
}

// ---------------------------------------------------------------------------
// Attempts
// ---------------------------------------------------------------------------

func TestChallengeRepository_IncrementAttempts(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		count, err := repo.IncrementAttempts(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
}

func TestChallengeRepository_IncrementAttempts_SetsTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)

	_, err := repo.IncrementAttempts(context.Background(), "user@example.com")
	require.NoError(t, err)

	ttl := mr.TTL("otp_attempts:user@example.com")
	assert.Equal(t, 5*time.Minute+expiryGrace, ttl)
}

func TestChallengeRepository_GetAttempts_Missing(t *testing.T) {
	repo, _ := setupTestRedis(t)

	count, err := repo.GetAttempts(context.Background(), "missing@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
