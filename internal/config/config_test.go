package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLoad_RequiresMasterSecret(t *testing.T) {
	t.Setenv("TALLY_MASTER_SECRET", "")
	_, err := Load(Overrides{})
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TALLY_MASTER_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("DEBUG", "")
	t.Setenv("WEB_DIR", "")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	require.Equal(t, ":3010", cfg.Addr)
	require.Equal(t, "./tally.db", cfg.DatabasePath)
	require.Equal(t, "./web", cfg.WebDir)
	require.False(t, cfg.Debug)
	require.Nil(t, cfg.TLS)
}

func TestLoad_EnvironmentAndOverrides(t *testing.T) {
	t.Setenv("TALLY_MASTER_SECRET", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "1")

	cfg, err := Load(Overrides{
		Addr:         strPtr("127.0.0.1:9999"),
		DatabasePath: strPtr(":memory:"),
	})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Addr)
	require.Equal(t, ":memory:", cfg.DatabasePath)
	require.True(t, cfg.Debug)
}
