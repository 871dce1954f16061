package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings a command mode depends on are usable.
// Modes: "geocode", "search", "transit", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "geocode":
		errs = append(errs, c.validateGeocode()...)
	case "search":
	case "transit":
		errs = append(errs, c.validateTransit()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Dataset.RefreshSecs < 0 {
			errs = append(errs, "dataset.refresh_secs must be >= 0")
		}
		errs = append(errs, c.validateTransit()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Dataset.Path == "" {
		errs = append(errs, "dataset.path is required")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateGeocode() []string {
	var errs []string
	switch c.Geocode.CacheDriver {
	case "json", "sqlite":
		if c.Geocode.CachePath == "" {
			errs = append(errs, "geocode.cache_path is required")
		}
	case "postgres":
		if c.Geocode.DatabaseURL == "" {
			errs = append(errs, "geocode.database_url is required for the postgres cache")
		}
	default:
		errs = append(errs, fmt.Sprintf("geocode.cache_driver %q must be json, sqlite or postgres", c.Geocode.CacheDriver))
	}
	if c.Geocode.CheckpointInterval < 1 {
		errs = append(errs, "geocode.checkpoint_interval must be >= 1")
	}
	if c.Geocode.RecordDelayMs < 0 || c.Geocode.RetryDelayMs < 0 {
		errs = append(errs, "geocode delays must be >= 0")
	}
	return errs
}

func (c *Config) validateTransit() []string {
	var errs []string
	if c.Transit.BatchSize < 1 || c.Transit.BatchSize > 25 {
		errs = append(errs, "transit.batch_size must be between 1 and 25")
	}
	if c.Transit.BatchDelayMs < 0 {
		errs = append(errs, "transit.batch_delay_ms must be >= 0")
	}
	return errs
}
