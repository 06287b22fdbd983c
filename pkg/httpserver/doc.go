// Package httpserver wraps http.Server with context-driven graceful
// shutdown, configured from the environment.
package httpserver
