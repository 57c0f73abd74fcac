package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptpayme/twofa/internal/domain"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
)

const (
	challengeKeyPrefix = "otp:"
	attemptsKeyPrefix  = "otp_attempts:"

	// expiryGrace keeps the Redis key alive past the challenge's own
	// expires_at, so a late verify hits the stored challenge and gets the
	// expired error instead of not-found.
	expiryGrace = time.Minute
)

// ChallengeRepository implements repository.ChallengeRepository using Redis.
// The Redis TTL is only the sweep; callers re-check expires_at on read.
// The attempt counter lives under a separate key with the same TTL so a
// fresh challenge always starts at zero attempts.
type ChallengeRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChallengeRepository creates a new Redis-backed challenge repository.
// Keys live for ttl plus a grace margin.
func NewChallengeRepository(client *redis.Client, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		ttl:    ttl + expiryGrace,
	}
}

// Replace stores the challenge and clears the attempt counter in a single
// MULTI/EXEC pipeline so a concurrent verify never sees the new challenge
// with the old counter.
func (r *ChallengeRepository) Replace(ctx context.Context, challenge *domain.OtpChallenge) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, challengeKeyPrefix+challenge.Email, data, r.ttl)
		pipe.Del(ctx, attemptsKeyPrefix+challenge.Email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace challenge: %w", err)
	}

	return nil
}

// Get retrieves the pending challenge for an email.
func (r *ChallengeRepository) Get(ctx context.Context, email string) (*domain.OtpChallenge, error) {
	data, err := r.client.Get(ctx, challengeKeyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("challenge", email)
		}
		return nil, fmt.Errorf("redis get challenge: %w", err)
	}

	var challenge domain.OtpChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// Delete removes the challenge and its attempt counter.
func (r *ChallengeRepository) Delete(ctx context.Context, email string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, challengeKeyPrefix+email)
		pipe.Del(ctx, attemptsKeyPrefix+email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete challenge: %w", err)
	}

	return nil
}

// IncrementAttempts atomically increments the attempt counter and returns
// the new count. The counter inherits the challenge TTL so it cannot
// outlive the challenge it guards.
func (r *ChallengeRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	key := attemptsKeyPrefix + email

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr attempts: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis expire attempts: %w", err)
		}
	}

	return int(count), nil
}

// GetAttempts returns the current attempt count; a missing key means zero.
func (r *ChallengeRepository) GetAttempts(ctx context.Context, email string) (int, error) {
	count, err := r.client.Get(ctx, attemptsKeyPrefix+email).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get attempts: %w", err)
	}

	return count, nil
}
