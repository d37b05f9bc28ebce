package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateStaging(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.DateToleranceDays < 0 {
		return errors.New("matching.date_tolerance_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateStaging() error {
	switch c.Staging.MaterializeMode {
	case "copy", "hardlink":
		return nil
	default:
		return fmt.Errorf("staging.materialize_mode must be %q or %q", "copy", "hardlink")
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q", "console", "json")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}
