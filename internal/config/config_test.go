// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 60*time.Second, cfg.WarningLead)
	assert.Equal(t, time.Second, cfg.MonitorInterval)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\nwarning_lead: 30s\n"), 0o600))

	t.Setenv("WP_LISTEN", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr, "environment must win over file")
	assert.Equal(t, 30*time.Second, cfg.WarningLead, "file must win over defaults")
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [nope"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.TokenTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.MonitorInterval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.TracingSampling = 1.5
	assert.Error(t, cfg.Validate())
}

func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("WP_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("WP_TEST_INT", 1))
	t.Setenv("WP_TEST_INT", "not-a-number")
	assert.Equal(t, 1, ParseInt("WP_TEST_INT", 1))

	t.Setenv("WP_TEST_BOOL", "true")
	assert.True(t, ParseBool("WP_TEST_BOOL", false))

	t.Setenv("WP_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("WP_TEST_DUR", time.Minute))
	t.Setenv("WP_TEST_DUR", "bogus")
	assert.Equal(t, time.Minute, ParseDuration("WP_TEST_DUR", time.Minute))
}

func TestAllowedOriginsCSV(t *testing.T) {
	t.Setenv("WP_ALLOWED_ORIGINS", "https://app.workpulse.us, http://localhost:5173")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.workpulse.us", "http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestDatabasePath(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/tmp/wp"
	assert.Equal(t, filepath.Join("/tmp/wp", "workpulse.sqlite"), cfg.DatabasePath())
}
