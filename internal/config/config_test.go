package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("WS_BASE_URL", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("DATA_FOLDER", "")
	t.Setenv("CREDENTIALS_DB", "")

	c := config.New()
	require.Equal(t, "http://localhost:8000/api", c.GetAPIBaseURL())
	require.Equal(t, "ws://localhost:8000", c.GetWSBaseURL())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, "data/credentials.db", c.GetCredentialsDB())
	require.Equal(t, "DEV", c.GetEnv())
}

func TestOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/api/")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("WS_DIAL_TIMEOUT", "not-a-duration")

	c := config.New()
	require.Equal(t, "https://api.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, 10*time.Second, c.GetDialTimeout())
}
