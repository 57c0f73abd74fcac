package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptpayme/twofa/migrations"
	"github.com/cryptpayme/twofa/pkg/database"
)

// newIntegrationPool connects to a real PostgreSQL instance and applies the
// schema migrations. It skips the test if TWOFA_TEST_DATABASE_URL is not set.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TWOFA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TWOFA_TEST_DATABASE_URL not set — skipping PostgreSQL integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to open PostgreSQL pool")

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("PostgreSQL at TWOFA_TEST_DATABASE_URL not reachable: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.RunMigrations(ctx, pool, migrations.FS, logger))

	t.Cleanup(pool.Close)
	return pool
}

// integrationEmail generates a unique email per run so tests never collide
// with leftover rows from earlier runs.
func integrationEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

func TestProfileRepository_LinkWallet_DoubleLinkKeepsSingleEntry(t *testing.T) {
	pool := newIntegrationPool(t)
	repo := NewProfileRepository(pool)
	ctx := context.Background()

	email := integrationEmail("double-link")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM identity_profiles WHERE email = $1`, email)
	})

	_, err := repo.UpsertVerified(ctx, email, "device-1")
	require.NoError(t, err)

	wallet := "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"

	first, err := repo.LinkWallet(ctx, email, wallet)
	require.NoError(t, err)
	assert.Equal(t, []string{wallet}, first.Wallets)

	// Linking the same wallet again must not grow the list.
	second, err := repo.LinkWallet(ctx, email, wallet)
	require.NoError(t, err)
	assert.Equal(t, []string{wallet}, second.Wallets, "repeat link must keep a single entry")

	// A distinct wallet still appends.
	other := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	third, err := repo.LinkWallet(ctx, email, other)
	require.NoError(t, err)
	assert.Equal(t, []string{wallet, other}, third.Wallets)
}

func TestProfileRepository_UpsertVerified_SecondVerifyKeepsDevice(t *testing.T) {
	pool := newIntegrationPool(t)
	repo := NewProfileRepository(pool)
	ctx := context.Background()

	email := integrationEmail("reverify")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM identity_profiles WHERE email = $1`, email)
	})

	first, err := repo.UpsertVerified(ctx, email, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "device-1", first.DeviceID)

	// Re-verifying without a device keeps the existing binding.
	second, err := repo.UpsertVerified(ctx, email, "")
	require.NoError(t, err)
	assert.Equal(t, "device-1", second.DeviceID)
	require.NotNil(t, second.VerifiedAt)
	require.NotNil(t, first.VerifiedAt)
	assert.False(t, second.VerifiedAt.Before(*first.VerifiedAt))
}
