// Package logging builds the slog loggers used across versemill.
//
// Two output formats are supported: a compact console format for interactive
// use (timestamp, level, component prefix, key=value attributes) and JSON for
// machine consumption. Loggers write to stdout and, when a log directory is
// configured, to versemill.log inside it. Attribute helpers and standardized
// field keys keep log output consistent between the scheduler, the pipeline,
// and the CLI.
package logging
