package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting of the service. It is read once at startup.
type Config struct {
	ListenAddress  string   `env:"TURNAUTH_LISTEN_ADDRESS,default=:9000"`
	TrustedProxies []string `env:"TURNAUTH_TRUSTED_PROXIES"`
	LogLevel       string   `env:"LOG_LEVEL,default=info"`

	// SharedSecret is known to the TURN relays and never leaves the process
	SharedSecret  string        `env:"TURN_SECRET"`
	CredentialTTL time.Duration `env:"TURN_CREDENTIAL_TTL,default=12h"`
	TurnURIs      []string      `env:"TURN_URIS"`

	SessionKey string `env:"TURNAUTH_SESSION_KEY"`

	RedisURL   string        `env:"REDIS_URL"`
	RateLimit  int           `env:"TURNAUTH_RATE_LIMIT,default=0"`
	RateWindow time.Duration `env:"TURNAUTH_RATE_WINDOW,default=1m"`

	RelayListenAddress string `env:"TURN_LISTEN_ADDRESS,default=0.0.0.0:3478"`
	RelayPublicIP      string `env:"TURN_PUBLIC_IP,default=127.0.0.1"`
	RelayRealm         string `env:"TURN_REALM,default=runash"`
}

// Load reads envFile when it exists and decodes the environment into a Config
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
			log.Debugf("env file %s not found, using process environment", envFile)
		}
	}

	cfg := &Config{}
	if err := envdecode.StrictDecode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.CredentialTTL < time.Second {
		return fmt.Errorf("credential ttl must be at least 1s, got %s", c.CredentialTTL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return fmt.Errorf("rate window must be positive when rate limit is set")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// RequireSecret fails when no shared secret is configured
func (c *Config) RequireSecret() error {
	if c.SharedSecret == "" {
		return fmt.Errorf("turn shared secret is required (set TURN_SECRET or --secret)")
	}
	return nil
}
