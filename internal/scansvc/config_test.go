package scansvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SCAN_RETENTION_DAYS", "90")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention())
	assert.Equal(t, "scan-archive", cfg.QueueGroup)
}

func TestLoadConfigRejectsRetention(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SCAN_RETENTION_DAYS", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
