package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pakettikauppa/internal/config"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

const profilesYAML = `profiles:
  shop-a:
    api_key: key-a
    secret: secret-a
  posti:
    auth_mode: oauth_bearer
    auth_url: https://auth.example.com
  sandbox:
    test_mode: true
`

func writeProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "fi", cfg.Language)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "legacy_hmac", cfg.AuthMode)
	assert.Nil(t, cfg.Profiles)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PAKETTIKAUPPA_API_KEY", "key")
	t.Setenv("PAKETTIKAUPPA_SECRET", "secret")
	t.Setenv("PAKETTIKAUPPA_LEGACY_ROUTING", "true")
	t.Setenv("PAKETTIKAUPPA_TIMEOUT", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)

	clientCfg := cfg.ClientConfig()
	assert.Equal(t, "key", clientCfg.APIKey)
	assert.Equal(t, "secret", clientCfg.Secret)
	assert.True(t, clientCfg.LegacyRouting)
	assert.Equal(t, 5*time.Second, clientCfg.Timeout)

	creds, err := clientCfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, pakettikauppa.ProductionBaseURI, creds.BaseURI)
	assert.Equal(t, pakettikauppa.RoutingLegacyMD5, creds.RoutingScheme)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("PAKETTIKAUPPA_TEST_MODE", "maybe")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadProfiles(t *testing.T) {
	profiles, err := config.LoadProfiles(writeProfiles(t))
	require.NoError(t, err)

	require.Len(t, profiles, 3)
	assert.Equal(t, "key-a", profiles["shop-a"].APIKey)
	assert.Equal(t, pakettikauppa.AuthOAuthBearer, profiles["posti"].AuthMode)
	assert.True(t, profiles["sandbox"].TestMode)
}

func TestLoadProfiles_MissingFile(t *testing.T) {
	_, err := config.LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ProfileSelection(t *testing.T) {
	t.Setenv("PAKETTIKAUPPA_PROFILES_FILE", writeProfiles(t))
	t.Setenv("PAKETTIKAUPPA_PROFILE", "shop-a")

	cfg, err := config.Load()
	require.NoError(t, err)

	creds, err := cfg.ClientConfig().Resolve()
	require.NoError(t, err)
	assert.Equal(t, "key-a", creds.APIKey)
	assert.Equal(t, "secret-a", creds.Secret)
	assert.False(t, creds.Sandbox)
}

func TestAttributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "pakettikauppa", Version: "1.0.0", Profile: "shop-a"}
	attrs := cfg.Attributes()

	found := map[string]string{}
	for _, kv := range attrs {
		found[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "pakettikauppa", found["service.name"])
	assert.Equal(t, "shop-a", found["pakettikauppa.profile"])
}
