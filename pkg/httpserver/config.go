package httpserver

import "time"

type Config struct {
	Addr            string        `env:"MAILBOX_HTTP_ADDR" envDefault:":8080"`           // Addr is the address the server listens on.
	ReadTimeout     time.Duration `env:"MAILBOX_HTTP_READ_TIMEOUT" envDefault:"30s"`     // ReadTimeout is the maximum duration for reading the entire request.
	WriteTimeout    time.Duration `env:"MAILBOX_HTTP_WRITE_TIMEOUT" envDefault:"30s"`    // WriteTimeout is the maximum duration before timing out writes of the response.
	IdleTimeout     time.Duration `env:"MAILBOX_HTTP_IDLE_TIMEOUT" envDefault:"120s"`    // IdleTimeout is the keep-alive wait for the next request.
	ShutdownTimeout time.Duration `env:"MAILBOX_HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"` // ShutdownTimeout is the time allowed for graceful shutdown.
}
