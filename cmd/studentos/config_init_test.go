package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentos/studentos/internal/config"
)

func TestRunConfigInit(t *testing.T) {
	t.Run("writes template to output path", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "config.toml")

		cmd := configInitCmd
		require.NoError(t, cmd.Flags().Set("output", output))
		require.NoError(t, cmd.Flags().Set("force", "false"))

		err := runConfigInit(cmd, nil)
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[server]")
		assert.Contains(t, string(data), "[rate_limit]")
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(output, []byte("existing"), 0o600))

		cmd := configInitCmd
		require.NoError(t, cmd.Flags().Set("output", output))
		require.NoError(t, cmd.Flags().Set("force", "false"))

		err := runConfigInit(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("generated template loads and validates", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "config.toml")

		cmd := configInitCmd
		require.NoError(t, cmd.Flags().Set("output", output))
		require.NoError(t, cmd.Flags().Set("force", "true"))
		require.NoError(t, runConfigInit(cmd, nil))

		cfg, err := config.Load(output)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
		assert.Equal(t, 10, cfg.RateLimit.GetAIMaxRequests())
	})
}
