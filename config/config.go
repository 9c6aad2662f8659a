// Package config loads the host bridge settings from HOSTBRIDGE_* environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"host-bridge/hostinfo"
)

var validate = validator.New()

// Config holds everything needed to serve or call the endpoint.
// Command line flags default to these values.
type Config struct {
	Namespace string `env:"NAMESPACE" envDefault:"com.fgcompany.fgislamic_prayer" validate:"required"`
	Network   string `env:"NETWORK" envDefault:"tcp" validate:"oneof=tcp tcp4 tcp6 unix"`
	Listen    string `env:"LISTEN" envDefault:":7420" validate:"required"`
	Advertise string `env:"ADVERTISE"`

	EtcdEndpoints []string `env:"ETCD" envSeparator:","`
	RegistryTTL   int64    `env:"REGISTRY_TTL" envDefault:"10" validate:"min=1"`

	Codec    string `env:"CODEC" envDefault:"json" validate:"oneof=json binary"`
	Balancer string `env:"BALANCER" envDefault:"round_robin" validate:"oneof=round_robin weighted_random consistent_hash"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"2" validate:"min=1"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"90s" validate:"gte=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	RateLimit       float64       `env:"RATE_LIMIT" validate:"gte=0"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"10" validate:"min=1"`

	TimeZoneFallback string `env:"TIMEZONE_FALLBACK" envDefault:"UTC" validate:"required"`
	MetricsListen    string `env:"METRICS_LISTEN"`

	Verbose bool   `env:"VERBOSE"`
	LogFile string `env:"LOGFILE"`
}

// Load parses the HOSTBRIDGE_* environment into a Config with defaults applied.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "HOSTBRIDGE_"}); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}

// Validate checks field constraints and that the fallback zone loads.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if _, err := time.LoadLocation(c.TimeZoneFallback); err != nil || c.TimeZoneFallback == "Local" {
		return errors.Newf("timezone fallback %q is not a zone id", c.TimeZoneFallback)
	}
	return nil
}

// Channel returns the endpoint channel for the configured namespace.
func (c *Config) Channel() string {
	return hostinfo.ChannelName(c.Namespace)
}
