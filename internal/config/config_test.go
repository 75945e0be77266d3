package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 64, cfg.WSSendBuffer)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_MODE", "grpc")
	t.Setenv("AUTH_GRPC_ADDR", "auth:9000")
	t.Setenv("STORE_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "auth:9000", cfg.AuthGRPCAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
}

func TestValidate(t *testing.T) {
	base := Config{
		StoreDriver:  StoreDriverMemory,
		AuthMode:     AuthModeJWT,
		JWTSecret:    "s",
		StoreTimeout: time.Second,
		WSSendBuffer: 1,
	}
	require.NoError(t, base.Validate())

	missingSecret := base
	missingSecret.JWTSecret = ""
	assert.Error(t, missingSecret.Validate())

	badDriver := base
	badDriver.StoreDriver = "sqlite"
	assert.Error(t, badDriver.Validate())

	badMode := base
	badMode.AuthMode = "basic"
	assert.Error(t, badMode.Validate())

	noTimeout := base
	noTimeout.StoreTimeout = 0
	assert.Error(t, noTimeout.Validate())
}

func TestLoadSeedUsers(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SEED_USERS", "u1:Alice:a@example.com,u2:Bob:b@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"u1:Alice:a@example.com", "u2:Bob:b@example.com"}, cfg.SeedUsers)
}
