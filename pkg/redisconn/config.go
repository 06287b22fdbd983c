package redisconn

import "time"

// Config describes the redis connection used by the clustered mailbox backend.
type Config struct {
	ConnectionURL  string        `env:"MAILBOX_REDIS_URL" envDefault:"redis://localhost:6379/0"` // Format: "redis://:password@host:6379/0"
	RetryAttempts  int           `env:"MAILBOX_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MAILBOX_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"MAILBOX_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
