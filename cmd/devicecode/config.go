package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every variable, e.g. DEVICECODE_BASE_URL
const envPrefix = "devicecode"

// Config holds CLI configuration loaded from environment variables
type Config struct {
	BaseURL        string        `envconfig:"BASE_URL" required:"true"`
	Token          string        `envconfig:"TOKEN"`
	ClientID       string        `envconfig:"CLIENT_ID"`
	ClientSecret   string        `envconfig:"CLIENT_SECRET"`
	TokenURL       string        `envconfig:"TOKEN_URL"`
	Audience       string        `envconfig:"AUDIENCE"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"10s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"console"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	PushgatewayURL string        `envconfig:"PUSHGATEWAY_URL"`
}

var errNoCredentials = errors.New("either DEVICECODE_TOKEN or DEVICECODE_CLIENT_ID and DEVICECODE_CLIENT_SECRET must be set")

// loadConfig reads the environment, fills derived defaults and validates
func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.complete(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// usesClientCredentials reports whether a token has to be requested
func (c *Config) usesClientCredentials() bool {
	return c.Token == ""
}

func (c *Config) complete() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("DEVICECODE_TIMEOUT must be positive, got %s", c.Timeout)
	}

	if !c.usesClientCredentials() {
		return nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return errNoCredentials
	}

	// The token endpoint and audience default to the tenant serving the API
	base, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("deriving token endpoint from DEVICECODE_BASE_URL %q: set DEVICECODE_TOKEN_URL", c.BaseURL)
	}
	if c.TokenURL == "" {
		c.TokenURL = base.Scheme + "://" + base.Host + "/oauth/token"
	}
	if c.Audience == "" {
		c.Audience = strings.TrimSuffix(c.BaseURL, "/") + "/"
	}

	return nil
}
