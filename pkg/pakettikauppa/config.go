package pakettikauppa

import (
	"fmt"
	"strings"
	"time"
)

// Well-known endpoints and the public sandbox account.
const (
	ProductionBaseURI = "https://api.pakettikauppa.fi"
	SandboxBaseURI    = "https://apitest.pakettikauppa.fi"

	ProductionAuthURL = "https://oauth2.posti.com"
	SandboxAuthURL    = "https://oauth2.barium.posti.com"

	SandboxAPIKey = "00000000-0000-0000-0000-000000000000"
	SandboxSecret = "1234567890ABCDEF"
)

// AuthMode selects how requests are authenticated.
type AuthMode string

const (
	// AuthLegacyHMAC signs every request with the shared secret only.
	AuthLegacyHMAC AuthMode = "legacy_hmac"

	// AuthOAuthBearer exchanges the credentials for a bearer token first.
	AuthOAuthBearer AuthMode = "oauth_bearer"
)

// Profile is a named set of overrides applied on top of Config by Resolve.
// Only non-empty fields take effect:
//   - APIKey, Secret, BaseURI, AuthURL replace the corresponding Config field
//   - AuthMode switches the authentication scheme (e.g. to AuthOAuthBearer)
//   - TestMode, when true, forces the sandbox account
type Profile struct {
	APIKey   string   `mapstructure:"api_key" json:"api_key,omitempty"`
	Secret   string   `mapstructure:"secret" json:"secret,omitempty"`
	BaseURI  string   `mapstructure:"base_uri" json:"base_uri,omitempty"`
	AuthURL  string   `mapstructure:"auth_url" json:"auth_url,omitempty"`
	AuthMode AuthMode `mapstructure:"auth_mode" json:"auth_mode,omitempty"`
	TestMode bool     `mapstructure:"test_mode" json:"test_mode,omitempty"`
}

// Config holds client configuration.
type Config struct {
	APIKey   string
	Secret   string
	BaseURI  string
	TestMode bool

	AuthMode AuthMode
	AuthURL  string

	// LegacyRouting signs documents with the pre-v2 MD5 routing key.
	LegacyRouting bool

	// Profile names an entry of Profiles to overlay before resolving.
	Profile  string
	Profiles map[string]Profile

	// Comment is sent as Routing.Comment on every document, e.g.
	// "Generated from Foobar platform".
	Comment   string
	Language  string
	UserAgent string
	Timeout   time.Duration
	UseMock   bool
}

// Credentials are the resolved, immutable authentication settings of a client.
type Credentials struct {
	APIKey        string
	Secret        string
	BaseURI       string
	AuthURL       string
	AuthMode      AuthMode
	RoutingScheme RoutingScheme
	Sandbox       bool
}

func (c Config) isEmpty() bool {
	return c.APIKey == "" && c.Secret == "" && c.BaseURI == ""
}

// withProfile returns a copy of c with the named profile overlaid.
func (c Config) withProfile() (Config, error) {
	if c.Profile == "" {
		return c, nil
	}
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return c, &ConfigurationError{Field: "profile", Message: fmt.Sprintf("unknown profile %q", c.Profile)}
	}
	if p.APIKey != "" {
		c.APIKey = p.APIKey
	}
	if p.Secret != "" {
		c.Secret = p.Secret
	}
	if p.BaseURI != "" {
		c.BaseURI = p.BaseURI
	}
	if p.AuthURL != "" {
		c.AuthURL = p.AuthURL
	}
	if p.AuthMode != "" {
		c.AuthMode = p.AuthMode
	}
	if p.TestMode {
		c.TestMode = true
	}
	return c, nil
}

// Resolve turns the configuration into credentials. Test mode, or a config
// without any credentials, resolves to the public sandbox account; otherwise
// APIKey and Secret are required.
func (c Config) Resolve() (Credentials, error) {
	c, err := c.withProfile()
	if err != nil {
		return Credentials{}, err
	}

	mode := c.AuthMode
	switch mode {
	case "":
		mode = AuthLegacyHMAC
	case AuthLegacyHMAC, AuthOAuthBearer:
	default:
		return Credentials{}, &ConfigurationError{Field: "auth_mode", Message: fmt.Sprintf("unsupported auth mode %q", mode)}
	}

	scheme := RoutingHMAC
	if c.LegacyRouting {
		scheme = RoutingLegacyMD5
	}

	creds := Credentials{
		AuthMode:      mode,
		RoutingScheme: scheme,
	}

	if c.TestMode || c.isEmpty() {
		creds.APIKey = SandboxAPIKey
		creds.Secret = SandboxSecret
		creds.BaseURI = SandboxBaseURI
		creds.Sandbox = true
		creds.AuthURL = trimURI(c.AuthURL)
		if creds.AuthURL == "" {
			creds.AuthURL = SandboxAuthURL
		}
		return creds, nil
	}

	if c.APIKey == "" {
		return Credentials{}, &ConfigurationError{Field: "api_key", Message: "api key not set"}
	}
	if c.Secret == "" {
		return Credentials{}, &ConfigurationError{Field: "secret", Message: "secret not set"}
	}

	creds.APIKey = c.APIKey
	creds.Secret = c.Secret
	creds.BaseURI = trimURI(c.BaseURI)
	if creds.BaseURI == "" {
		creds.BaseURI = ProductionBaseURI
	}
	creds.AuthURL = trimURI(c.AuthURL)
	if creds.AuthURL == "" {
		creds.AuthURL = ProductionAuthURL
	}
	return creds, nil
}

func trimURI(uri string) string {
	return strings.TrimRight(strings.TrimSpace(uri), "/")
}
