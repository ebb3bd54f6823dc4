package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/pkg/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), constants.SecureFilePermissions))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, credentials.DefaultFile, config.ConfigFile)
	assert.Equal(t, CredentialsFile, config.Credentials)
	assert.EqualValues(t, constants.MetadataLookID, config.LookID)
	assert.Equal(t, constants.DefaultHTTPTimeout, config.HTTPTimeout)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("LOOKERSYNC_METADATA_LOOK_ID", "12")
	t.Setenv("LOOKERSYNC_HTTP_TIMEOUT", "5s")
	t.Setenv("LOOKERSYNC_CREDENTIALS", "env")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.EqualValues(t, 12, config.LookID)
	assert.Equal(t, 5*time.Second, config.HTTPTimeout)
	assert.Equal(t, CredentialsEnv, config.Credentials)
	assert.Equal(t, "debug", config.EnvLogLevel)
}

func TestUpdateFromFlagsReloadsConfigFile(t *testing.T) {
	path := writeConfig(t, `
metadata_look_id: 9
http_timeout: 10s
hosts:
  devdealerware:
    host: https://dev.example.com
    token: a
    secret: b
`)

	config, err := LoadConfig()
	require.NoError(t, err)

	err = config.UpdateFromFlags(true, false, true, "json", "", path, "")
	require.NoError(t, err)

	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, CredentialsFile, config.Credentials)
	assert.EqualValues(t, 9, config.LookID)
	assert.Equal(t, 10*time.Second, config.HTTPTimeout)
}

func TestUpdateFromFlagsRejectsInvalidLookID(t *testing.T) {
	path := writeConfig(t, "metadata_look_id: -1\n")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Error(t, config.UpdateFromFlags(false, false, false, "", "", path, ""))
}

func TestUpdateFromFlagsBadYAML(t *testing.T) {
	path := writeConfig(t, "metadata_look_id: [\n")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Error(t, config.UpdateFromFlags(false, false, false, "", "", path, ""))
}
