// Package config loads environment-based configuration into tagged structs.
//
// It wraps github.com/caarlos0/env with a one-time .env bootstrap via
// godotenv, so local development picks up a .env file transparently while
// production reads the real environment.
package config
