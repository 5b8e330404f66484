// Package config loads, normalizes, and validates adgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ADGEN_LLM_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, so storage locations, provider endpoints, and bearer tokens are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
