package di

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig is a minimal valid configuration for testing.
const validConfig = `
[server]
listen = "127.0.0.1:8787"

[logging]
level = "info"
format = "json"

[database]
path = ":memory:"
`

// createTempConfigFile creates a temporary config file for testing.
func createTempConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(validConfig), 0o600)
	require.NoError(t, err)
	return path
}

func TestNewContainer(t *testing.T) {
	t.Run("creates container with valid config", func(t *testing.T) {
		configPath := createTempConfigFile(t)

		container, err := NewContainer(configPath)
		require.NoError(t, err)
		require.NotNil(t, container)
		assert.NotNil(t, container.Injector())

		err = container.Shutdown()
		assert.NoError(t, err)
	})

	t.Run("config load failure surfaces on invoke", func(t *testing.T) {
		container, err := NewContainer(filepath.Join(t.TempDir(), "missing.toml"))
		require.NoError(t, err)

		_, err = Invoke[*ConfigService](container)
		require.Error(t, err)
	})
}

func TestContainerInvoke(t *testing.T) {
	configPath := createTempConfigFile(t)
	container, err := NewContainer(configPath)
	require.NoError(t, err)
	defer container.Shutdown() //nolint:errcheck // test cleanup

	t.Run("Invoke resolves config service", func(t *testing.T) {
		cfgSvc, err := Invoke[*ConfigService](container)
		require.NoError(t, err)
		require.NotNil(t, cfgSvc)
		assert.Equal(t, "127.0.0.1:8787", cfgSvc.Get().Server.Listen)
	})

	t.Run("MustInvoke resolves store service", func(t *testing.T) {
		storeSvc := MustInvoke[*StoreService](container)
		assert.NotNil(t, storeSvc.DB)
	})

	t.Run("auth is anonymous without a secret", func(t *testing.T) {
		authSvc := MustInvoke[*AuthService](container)
		assert.Nil(t, authSvc.Authenticator)
	})

	t.Run("handler serves health", func(t *testing.T) {
		handlerSvc := MustInvoke[*HandlerService](container)
		require.NotNil(t, handlerSvc.Handler)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
		handlerSvc.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ai endpoints report unavailable without an api key", func(t *testing.T) {
		handlerSvc := MustInvoke[*HandlerService](container)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze-cv",
			strings.NewReader(`{"cvText": "resume"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "198.51.100.9:40000"
		handlerSvc.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestContainerShutdown(t *testing.T) {
	configPath := createTempConfigFile(t)
	container, err := NewContainer(configPath)
	require.NoError(t, err)

	// Initialize the full graph before shutting down.
	_ = MustInvoke[*ServerService](container)

	err = container.Shutdown()
	assert.NoError(t, err)
}
