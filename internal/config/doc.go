// Package config loads, validates, and normalizes versemill configuration.
//
// Configuration lives in a TOML file, by default at
// ~/.config/versemill/config.toml with a project-local versemill.toml
// fallback. Load applies defaults first, then file values, then normalizes
// every path field to an absolute location. Validate rejects configurations
// the daemon cannot run with; it is intentionally strict so misconfiguration
// surfaces at startup rather than mid-pipeline.
package config
