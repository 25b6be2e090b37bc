package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, log.InfoLevel, logLevel(""))
	assert.Equal(t, log.DebugLevel, logLevel("debug"))
	assert.Equal(t, log.InfoLevel, logLevel("loud"))
}

func TestCustomLoggerMiddlewarePassesStatus(t *testing.T) {
	h := CustomLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/04A1B2", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBootstrapAppliesLogSettingsFromEnvFile(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_STDOUT"} {
		k := k
		prev, had := os.LookupEnv(k)
		require.NoError(t, os.Unsetenv(k))
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
	level, out := log.GetLevel(), log.StandardLogger().Out
	t.Cleanup(func() {
		log.SetLevel(level)
		log.SetOutput(out)
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\nLOG_STDOUT=true\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	Bootstrap("tap")

	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.Equal(t, os.Stdout, log.StandardLogger().Out)
	assert.NotEmpty(t, GetInstanceId())
}
