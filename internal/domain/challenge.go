package domain

import (
	"time"
)

// OtpChallenge represents a pending one-time-password challenge for an email.
// The secret itself is never stored; only its bcrypt hash.
type OtpChallenge struct {
	Email      string    `json:"email"`
	SecretHash string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the challenge is past its expiry at the given
// instant. A challenge expiring exactly at now is still valid.
func (c *OtpChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
