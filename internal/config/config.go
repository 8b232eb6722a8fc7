// Package config loads the bridge's runtime configuration from environment
// variables (optionally backed by a .env file), grounded on ws/config.go's
// caarlos0/env + godotenv + Validate pattern.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"amora/internal/publisher"
	"amora/internal/topic"
	"amora/internal/transport"
)

// Config holds every tunable the device-side bridge needs at startup.
type Config struct {
	// Device identity and topic layout.
	DeviceID     string `env:"AMORA_DEVICE_ID,required"`
	TopicPrefix  string `env:"AMORA_TOPIC_PREFIX" envDefault:"amora/devices"`

	// Transport.
	BrokerURL                string        `env:"AMORA_BROKER_URL,required"`
	BrokerPort               int           `env:"AMORA_BROKER_PORT" envDefault:"4222"`
	Username                 string        `env:"AMORA_BROKER_USERNAME"`
	Password                 string        `env:"AMORA_BROKER_PASSWORD"`
	UseTLS                   bool          `env:"AMORA_BROKER_TLS" envDefault:"false"`
	CAPath                   string        `env:"AMORA_BROKER_CA_PATH"`
	CertPath                 string        `env:"AMORA_BROKER_CERT_PATH"`
	KeyPath                  string        `env:"AMORA_BROKER_KEY_PATH"`
	KeepAliveSeconds         int           `env:"AMORA_KEEPALIVE_SECONDS" envDefault:"30"`
	CleanSession             bool          `env:"AMORA_CLEAN_SESSION" envDefault:"true"`
	ReconnectOnFailure       bool          `env:"AMORA_RECONNECT" envDefault:"true"`
	MaxReconnectDelaySeconds int           `env:"AMORA_MAX_RECONNECT_DELAY_SECONDS" envDefault:"30"`
	ConnectTimeoutSeconds    int           `env:"AMORA_CONNECT_TIMEOUT_SECONDS" envDefault:"5"`
	DefaultQoS               int           `env:"AMORA_DEFAULT_QOS" envDefault:"1"`

	// Command dispatch.
	WorkerCount    int     `env:"AMORA_WORKER_COUNT" envDefault:"4"`
	RateLimitHz    float64 `env:"AMORA_RATE_LIMIT_HZ" envDefault:"0"`
	RateLimitBurst int     `env:"AMORA_RATE_LIMIT_BURST" envDefault:"10"`

	// Status publisher.
	PositionUpdateInterval time.Duration `env:"AMORA_POSITION_UPDATE_INTERVAL" envDefault:"1s"`
	UpdateInterval         time.Duration `env:"AMORA_UPDATE_INTERVAL" envDefault:"1s"`
	FullUpdateInterval     time.Duration `env:"AMORA_FULL_UPDATE_INTERVAL" envDefault:"5s"`

	// Observability.
	LogLevel    string `env:"AMORA_LOG_LEVEL" envDefault:"info"`
	LogPretty   bool   `env:"AMORA_LOG_PRETTY" envDefault:"false"`
	MetricsAddr string `env:"AMORA_METRICS_ADDR" envDefault:":9090"`
}

// Load reads .env (if present) then environment variables, applying defaults
// and validating the result. Priority: real env vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field and range constraints env tags can't express.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("AMORA_WORKER_COUNT must be > 0, got %d", c.WorkerCount)
	}
	if c.DefaultQoS != 0 && c.DefaultQoS != 1 {
		return fmt.Errorf("AMORA_DEFAULT_QOS must be 0 or 1, got %d", c.DefaultQoS)
	}
	if c.RateLimitHz < 0 {
		return fmt.Errorf("AMORA_RATE_LIMIT_HZ must be >= 0, got %f", c.RateLimitHz)
	}
	if c.UseTLS && c.CAPath == "" && c.CertPath == "" {
		return fmt.Errorf("AMORA_BROKER_TLS is set but neither AMORA_BROKER_CA_PATH nor AMORA_BROKER_CERT_PATH is configured")
	}
	return nil
}

// Namespace builds the device's topic namespace from TopicPrefix/DeviceID.
func (c *Config) Namespace() topic.Namespace {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = topic.DefaultPrefix
	}
	return topic.Namespace{Prefix: prefix, DeviceID: c.DeviceID}
}

// TransportOptions builds the transport.Options this config describes. The
// last-will fields are left zero; the bridge sets them once it knows the
// encoded offline Connection payload.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		BrokerURL:                c.BrokerURL,
		Port:                     c.BrokerPort,
		ClientID:                 c.DeviceID,
		Username:                 c.Username,
		Password:                 c.Password,
		UseTLS:                   c.UseTLS,
		CAPath:                   c.CAPath,
		CertPath:                 c.CertPath,
		KeyPath:                  c.KeyPath,
		KeepAliveSeconds:         c.KeepAliveSeconds,
		CleanSession:             c.CleanSession,
		ReconnectOnFailure:       c.ReconnectOnFailure,
		MaxReconnectDelaySeconds: c.MaxReconnectDelaySeconds,
		DefaultQoS:               c.DefaultQoS,
		ConnectTimeoutSeconds:    c.ConnectTimeoutSeconds,
	}
}

// PublisherIntervals builds the publisher.Intervals this config describes.
func (c *Config) PublisherIntervals() publisher.Intervals {
	return publisher.Intervals{
		PositionUpdate: c.PositionUpdateInterval,
		Update:         c.UpdateInterval,
		FullUpdate:     c.FullUpdateInterval,
	}
}
