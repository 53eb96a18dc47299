package pakettikauppa_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

func TestResolve_EmptyConfigIsSandbox(t *testing.T) {
	creds, err := pakettikauppa.Config{}.Resolve()
	require.NoError(t, err)

	assert.True(t, creds.Sandbox)
	assert.Equal(t, pakettikauppa.SandboxAPIKey, creds.APIKey)
	assert.Equal(t, pakettikauppa.SandboxSecret, creds.Secret)
	assert.Equal(t, pakettikauppa.SandboxBaseURI, creds.BaseURI)
	assert.Equal(t, pakettikauppa.AuthLegacyHMAC, creds.AuthMode)
	assert.Equal(t, pakettikauppa.RoutingHMAC, creds.RoutingScheme)
	assert.Equal(t, pakettikauppa.SandboxAuthURL, creds.AuthURL)
}

func TestResolve_TestModeOverridesCredentials(t *testing.T) {
	creds, err := pakettikauppa.Config{APIKey: "real", Secret: "real", TestMode: true}.Resolve()
	require.NoError(t, err)
	assert.True(t, creds.Sandbox)
	assert.Equal(t, pakettikauppa.SandboxAPIKey, creds.APIKey)
}

func TestResolve_Production(t *testing.T) {
	creds, err := pakettikauppa.Config{APIKey: "key", Secret: "secret"}.Resolve()
	require.NoError(t, err)

	assert.False(t, creds.Sandbox)
	assert.Equal(t, pakettikauppa.ProductionBaseURI, creds.BaseURI)
}

func TestResolve_CustomBaseURITrimmed(t *testing.T) {
	creds, err := pakettikauppa.Config{APIKey: "key", Secret: "secret", BaseURI: "https://proxy.example.com/api/"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/api", creds.BaseURI)
}

func TestResolve_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		cfg   pakettikauppa.Config
		field string
	}{
		{"missing key", pakettikauppa.Config{Secret: "secret"}, "api_key"},
		{"missing secret", pakettikauppa.Config{APIKey: "key"}, "secret"},
		{"base uri only", pakettikauppa.Config{BaseURI: "https://api.example.com"}, "api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Resolve()

			var cfgErr *pakettikauppa.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.True(t, errors.Is(err, pakettikauppa.ErrConfiguration))
		})
	}
}

func TestResolve_OAuthDefaults(t *testing.T) {
	creds, err := pakettikauppa.Config{AuthMode: pakettikauppa.AuthOAuthBearer}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, pakettikauppa.SandboxAuthURL, creds.AuthURL)

	creds, err = pakettikauppa.Config{APIKey: "key", Secret: "secret", AuthMode: pakettikauppa.AuthOAuthBearer}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, pakettikauppa.ProductionAuthURL, creds.AuthURL)
}

func TestResolve_UnsupportedAuthMode(t *testing.T) {
	_, err := pakettikauppa.Config{AuthMode: "kerberos"}.Resolve()
	assert.True(t, errors.Is(err, pakettikauppa.ErrConfiguration))
}

func TestResolve_LegacyRouting(t *testing.T) {
	creds, err := pakettikauppa.Config{LegacyRouting: true}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, pakettikauppa.RoutingLegacyMD5, creds.RoutingScheme)
}

func TestResolve_Profile(t *testing.T) {
	cfg := pakettikauppa.Config{
		APIKey:  "base-key",
		Secret:  "base-secret",
		Profile: "posti",
		Profiles: map[string]pakettikauppa.Profile{
			"posti": {
				APIKey:   "posti-key",
				AuthMode: pakettikauppa.AuthOAuthBearer,
				AuthURL:  "https://auth.example.com/",
			},
		},
	}

	creds, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "posti-key", creds.APIKey)
	assert.Equal(t, "base-secret", creds.Secret)
	assert.Equal(t, pakettikauppa.AuthOAuthBearer, creds.AuthMode)
	assert.Equal(t, "https://auth.example.com", creds.AuthURL)
}

func TestResolve_UnknownProfile(t *testing.T) {
	_, err := pakettikauppa.Config{Profile: "missing"}.Resolve()

	var cfgErr *pakettikauppa.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "profile", cfgErr.Field)
}
