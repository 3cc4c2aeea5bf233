// Package config loads, normalizes, and validates Vanguard configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VANGUARD_ACCOUNT_EMAIL and VANGUARD_NTFY_TOPIC. The Config type centralizes
// every knob the engine and CLI need: where evidence and downloads live, which
// messaging service receives alerts, which camera and GPS devices to read, and
// whether captured evidence is uploaded to the account service.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
