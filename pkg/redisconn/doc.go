// Package redisconn bootstraps the redis client behind the clustered
// mailbox backend: URL-based configuration from the environment, connect
// with retry, and a healthcheck probe for readiness endpoints.
package redisconn
