// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "pagekit", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 8*time.Second, cfg.Wait.AppearTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Wait.PollInterval)
	assert.Equal(t, WaitModeConcurrent, cfg.Wait.Mode)
	assert.Equal(t, 16, cfg.Variables.MaxPasses)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Wait Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Wait
		assert.NoError(t, valid.Validate())

		badMode := valid
		badMode.Mode = "parallel"
		err := badMode.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mode must be")

		sequential := valid
		sequential.Mode = "Sequential"
		assert.NoError(t, sequential.Validate(), "mode matching is case-insensitive")

		zeroTimeout := valid
		zeroTimeout.AppearTimeout = 0
		err = zeroTimeout.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive durations")

		zeroInterval := valid
		zeroInterval.PollInterval = 0
		err = zeroInterval.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "poll_interval")

		negativeRate := valid
		negativeRate.MaxChecksPerSecond = -1
		assert.Error(t, negativeRate.Validate())
	})

	t.Run("Variables Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Variables.MaxPasses = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "variables.max_passes must be a positive integer")
	})
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("overrides from yaml", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yamlConfig := []byte(`
wait:
  appear_timeout: 3s
  mode: sequential
catalog:
  paths:
    - pages.yaml
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.Wait.AppearTimeout)
		assert.Equal(t, WaitModeSequential, cfg.Wait.Mode)
		assert.Equal(t, []string{"pages.yaml"}, cfg.Catalog.Paths)
		// Untouched keys keep their defaults.
		assert.Equal(t, 8*time.Second, cfg.Wait.DisappearTimeout)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("wait.mode", "whenever")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestPropertySource(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "application.properties")
	second := filepath.Join(dir, "local.properties")
	require.NoError(t, os.WriteFile(first, []byte("host = a.test\nuser=alice\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("user=bob\n"), 0o600))

	t.Run("later files override earlier ones", func(t *testing.T) {
		src, err := LoadProperties(first, second)
		require.NoError(t, err)

		host, ok := src.Lookup("host")
		assert.True(t, ok)
		assert.Equal(t, "a.test", host)

		user, ok := src.Lookup("user")
		assert.True(t, ok)
		assert.Equal(t, "bob", user)

		_, ok = src.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("environment overrides files", func(t *testing.T) {
		t.Setenv("PAGEKIT_PROP_HOST", "env.test")
		src, err := LoadProperties(first)
		require.NoError(t, err)

		host, ok := src.Lookup("host")
		assert.True(t, ok)
		assert.Equal(t, "env.test", host)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadProperties(filepath.Join(dir, "nope.properties"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load property file")
	})

	t.Run("nil source resolves nothing", func(t *testing.T) {
		var src *PropertySource
		_, ok := src.Lookup("host")
		assert.False(t, ok)
	})

	t.Run("in-memory source", func(t *testing.T) {
		src := NewPropertySource(map[string]string{"path": "x"})
		val, ok := src.Lookup("path")
		assert.True(t, ok)
		assert.Equal(t, "x", val)
	})

	t.Run("keys are case-sensitive", func(t *testing.T) {
		src := NewPropertySource(map[string]string{"Path": "X"})
		_, ok := src.Lookup("path")
		assert.False(t, ok)
		val, ok := src.Lookup("Path")
		assert.True(t, ok)
		assert.Equal(t, "X", val)
	})
}

func TestPropertySource_DottedKeys(t *testing.T) {
	file := filepath.Join(t.TempDir(), "server.properties")
	require.NoError(t, os.WriteFile(file, []byte("host=a.test\nhost.port=80\nhost.port.tls=443\n"), 0o600))

	// Map iteration order varies between loads; every load must agree.
	for i := 0; i < 50; i++ {
		src, err := LoadProperties(file)
		require.NoError(t, err)

		host, ok := src.Lookup("host")
		require.True(t, ok)
		require.Equal(t, "a.test", host)

		port, ok := src.Lookup("host.port")
		require.True(t, ok)
		require.Equal(t, "80", port)

		tls, ok := src.Lookup("host.port.tls")
		require.True(t, ok)
		require.Equal(t, "443", tls)
	}

	src, err := LoadProperties(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "host.port", "host.port.tls"}, src.Keys())

	t.Run("environment overrides a dotted key only", func(t *testing.T) {
		t.Setenv(EnvKey("host.port"), "8080")
		assert.Equal(t, "PAGEKIT_PROP_HOST_PORT", EnvKey("host.port"))

		port, ok := src.Lookup("host.port")
		assert.True(t, ok)
		assert.Equal(t, "8080", port)

		host, ok := src.Lookup("host")
		assert.True(t, ok)
		assert.Equal(t, "a.test", host)
	})
}
