package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds everything the console core reads from the environment.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Motrack Admin Console"`

	// Admin API endpoints. LegacyBaseURL is only used as a transport
	// fallback for login when the primary is unreachable.
	APIBaseURL    string `envconfig:"API_BASE_URL" default:"http://localhost:8080" validate:"required,url"`
	LegacyBaseURL string `envconfig:"LEGACY_API_BASE_URL" validate:"omitempty,url"`

	// HTTPTimeout bounds every call to the admin API so a hung network
	// cannot leave the console in "checking authentication" forever.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" validate:"min=1s"`

	// PollInterval drives the cache invalidation tick.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"10s" validate:"min=1s"`

	// SessionFile is where the token/principal pair is persisted between
	// process restarts.
	SessionFile string `envconfig:"SESSION_FILE" default:".motrack-session.json" validate:"required"`

	Env string `envconfig:"ENV" default:"DEV"`
}

// Load reads configuration from the environment with the MOTRACK prefix.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("MOTRACK", &cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] envconfig.Process")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "[Config.Validate] invalid configuration")
	}
	return nil
}

// IsDev reports whether the process runs in a development environment.
func (c *Config) IsDev() bool {
	return c.Env == "DEV"
}
