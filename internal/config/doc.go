// Package config loads, normalizes, and validates cinereco configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TMDB_API_KEY environment
// fallback. The Config type centralizes every knob the build pipeline and CLI
// need: catalog filters, fetch tuning, snapshot locations and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
