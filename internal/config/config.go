package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the CLI and the HTTP bridge.
type Config struct {
	// Server
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Pakettikauppa
	APIKey        string        `envconfig:"PAKETTIKAUPPA_API_KEY"`
	Secret        string        `envconfig:"PAKETTIKAUPPA_SECRET"`
	BaseURI       string        `envconfig:"PAKETTIKAUPPA_BASE_URI"`
	TestMode      bool          `envconfig:"PAKETTIKAUPPA_TEST_MODE" default:"false"`
	AuthMode      string        `envconfig:"PAKETTIKAUPPA_AUTH_MODE" default:"legacy_hmac"`
	AuthURL       string        `envconfig:"PAKETTIKAUPPA_AUTH_URL"`
	LegacyRouting bool          `envconfig:"PAKETTIKAUPPA_LEGACY_ROUTING" default:"false"`
	Profile       string        `envconfig:"PAKETTIKAUPPA_PROFILE"`
	ProfilesFile  string        `envconfig:"PAKETTIKAUPPA_PROFILES_FILE"`
	Comment       string        `envconfig:"PAKETTIKAUPPA_COMMENT"`
	Language      string        `envconfig:"PAKETTIKAUPPA_LANGUAGE" default:"fi"`
	Timeout       time.Duration `envconfig:"PAKETTIKAUPPA_TIMEOUT" default:"30s"`
	UseMock       bool          `envconfig:"PAKETTIKAUPPA_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"pakettikauppa"`
	Version      string `envconfig:"SERVICE_VERSION" default:"1.0.0"`

	Profiles map[string]pakettikauppa.Profile `ignored:"true"`
}

// Load reads configuration from environment variables, then the profiles
// file if one is configured.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.ProfilesFile != "" {
		profiles, err := LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
		cfg.Profiles = profiles
	}
	return &cfg, nil
}

// LoadProfiles reads named credential profiles from a YAML, JSON or TOML
// file with a top-level "profiles" map:
//
//	profiles:
//	  shop-a:
//	    api_key: ...
//	    secret: ...
//	  posti:
//	    auth_mode: oauth_bearer
func LoadProfiles(path string) (map[string]pakettikauppa.Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	profiles := map[string]pakettikauppa.Profile{}
	if err := v.UnmarshalKey("profiles", &profiles); err != nil {
		return nil, fmt.Errorf("decoding profiles file %q: %w", path, err)
	}
	return profiles, nil
}

// ClientConfig returns the client configuration.
func (c *Config) ClientConfig() pakettikauppa.Config {
	return pakettikauppa.Config{
		APIKey:        c.APIKey,
		Secret:        c.Secret,
		BaseURI:       c.BaseURI,
		TestMode:      c.TestMode,
		AuthMode:      pakettikauppa.AuthMode(c.AuthMode),
		AuthURL:       c.AuthURL,
		LegacyRouting: c.LegacyRouting,
		Profile:       c.Profile,
		Profiles:      c.Profiles,
		Comment:       c.Comment,
		Language:      c.Language,
		Timeout:       c.Timeout,
		UseMock:       c.UseMock,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("pakettikauppa.auth_mode", c.AuthMode),
		attribute.String("pakettikauppa.profile", c.Profile),
		attribute.Bool("pakettikauppa.test_mode", c.TestMode),
		attribute.Bool("pakettikauppa.use_mock", c.UseMock),
	}
}
