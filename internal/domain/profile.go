package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Profile represents the verified identity for an email address: when it was
// last verified, which device it is bound to, and the wallets linked to it.
type Profile struct {
	Email      string     `json:"email"`
	Wallets    []string   `json:"wallets"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	DeviceID   string     `json:"device_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasWallet reports whether the given normalized wallet address is already
// linked to the profile.
func (p *Profile) HasWallet(wallet string) bool {
	for _, w := range p.Wallets {
		if w == wallet {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email address. All storage keys and
// lookups use the normalized form so that case variants map to one identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeWallet lowercases a hex wallet address for storage and comparison.
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// IsValidWallet reports whether the string is a well-formed 0x-prefixed
// 20-byte hex address.
func IsValidWallet(wallet string) bool {
	return common.IsHexAddress(wallet)
}
