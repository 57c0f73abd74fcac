package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cryptpayme/twofa/internal/domain"
	"github.com/cryptpayme/twofa/pkg/database"
	apperrors "github.com/cryptpayme/twofa/pkg/errors"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `email, wallets, verified_at, device_id, created_at, updated_at`

// GetByEmail retrieves a profile by normalized email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM identity_profiles
		WHERE email = $1`

	return r.scanProfile(ctx, query, email)
}

// UpsertVerified creates the profile if missing and stamps verified_at with
// the current time. A single statement keeps concurrent verifications from
// racing each other; the device binding is only overwritten when a non-empty
// deviceID is supplied.
func (r *ProfileRepository) UpsertVerified(ctx context.Context, email, deviceID string) (*domain.Profile, error) {
	query := `
		INSERT INTO identity_profiles (email, wallets, verified_at, device_id, created_at, updated_at)
		VALUES ($1, '{}', now(), $2, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET verified_at = now(),
		    device_id = CASE WHEN $2 <> '' THEN $2 ELSE identity_profiles.device_id END,
		    updated_at = now()
		RETURNING ` + profileColumns

	return r.scanProfile(ctx, query, email, deviceID)
}

// LinkWallet appends the wallet to the profile's wallet list if it is not
// already present. The append is expressed in the statement itself so two
// concurrent links of the same wallet still yield a single entry.
func (r *ProfileRepository) LinkWallet(ctx context.Context, email, wallet string) (*domain.Profile, error) {
	query := `
		UPDATE identity_profiles
		SET wallets = CASE
		        WHEN $2 = ANY(identity_profiles.wallets) THEN identity_profiles.wallets
		        ELSE array_append(identity_profiles.wallets, $2)
		    END,
		    updated_at = now()
		WHERE email = $1
		RETURNING ` + profileColumns

	return r.scanProfile(ctx, query, email, wallet)
}

// scanProfile executes a query expected to return a single profile row.
func (r *ProfileRepository) scanProfile(ctx context.Context, query string, args ...any) (*domain.Profile, error) {
	var p domain.Profile

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.Email,
		&p.Wallets,
		&p.VerifiedAt,
		&p.DeviceID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile", args[0].(string))
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}

	return &p, nil
}
