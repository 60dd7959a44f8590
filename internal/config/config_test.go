package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PRIVATE_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("ADMIN_PANEL_ENABLED", "false")
	t.Setenv("IMPORT_RATE_MAX", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Import.RateMax)
	assert.Equal(t, "0 3 * * *", cfg.Archive.Cron)
}

func TestLoadRejectsAdminPanelWithoutCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_PANEL_ENABLED", "true")
	t.Setenv("ADMIN_PANEL_USER", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allow.yaml")
	content := "emails:\n  - ' Ada@Example.com '\n  - ''\nadmins:\n  - root@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	list, err := LoadAllowList(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ada@example.com"}, list.Emails)
	assert.True(t, list.Allows("ADA@example.com"))
	assert.True(t, list.Allows("root@example.com"))
	assert.True(t, list.IsAdmin("root@example.com"))
	assert.False(t, list.IsAdmin("ada@example.com"))
	assert.False(t, list.Allows("eve@example.com"))
}

func TestLoadAllowListEmptyPath(t *testing.T) {
	list, err := LoadAllowList("")
	require.NoError(t, err)
	assert.False(t, list.Allows("ada@example.com"))

	var nilList *AllowList
	assert.False(t, nilList.Allows("ada@example.com"))
}
