// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. Every tuned threshold the scheduler and repair engine rely
// on (gap seconds, density floor, merge tolerance, reaper cutoffs, retry cap)
// lives here as a named key so operators can adjust them without a rebuild.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, derived directories, and clear validation errors.
package config
