// Package logger builds the service's slog.Logger from environment-driven
// configuration: level and output format (JSON for aggregation, text for
// local development).
package logger
