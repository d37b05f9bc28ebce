// Package config loads, normalizes, and validates starstage configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and core need: catalog and session database locations, the staging root
// for processing-session folders, the calibration date-proximity tolerance,
// and log output settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
