package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminIDs(t *testing.T) {
	ids, err := ParseAdminIDs(" 42, 7,,1001 ")
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, int64(42))
	assert.Contains(t, ids, int64(1001))

	_, err = ParseAdminIDs("42,abc")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("ADMIN_IDS", "9")
	t.Setenv("CLAIM_COOLDOWN", "")
	t.Setenv("PERIOD_TIMEZONE", "UTC")

	// An explicitly empty CLAIM_COOLDOWN is not a valid duration.
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CLAIM_COOLDOWN", "5s")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.ClaimCooldown)
	assert.Contains(t, cfg.AdminIDs, int64(9))
	assert.Equal(t, time.UTC, cfg.PeriodLocation)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
