package mailbox

import "time"

// Config holds the configuration for the mailbox engine
type Config struct {
	MessageTTL    time.Duration `env:"MAILBOX_MESSAGE_TTL" envDefault:"5m"`
	SweepInterval time.Duration `env:"MAILBOX_SWEEP_INTERVAL" envDefault:"60s"`
}
