package mailbox

import (
	"log/slog"
	"time"
)

type serviceOptions struct {
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// ServiceOption configures the mailbox Service
type ServiceOption func(*serviceOptions)

// WithTTL overrides the default expiration applied to messages submitted
// without an explicit ExpiresAt.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables prometheus instrumentation on the service
func WithMetrics(m *Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

type sweeperOptions struct {
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *Metrics
}

// SweeperOption configures the expiry Sweeper
type SweeperOption func(*sweeperOptions)

// WithSweepInterval sets the period between sweeper passes.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(o *sweeperOptions) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithSweeperClock overrides the sweeper's time source. Intended for tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(o *sweeperOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSweeperLogger sets the logger for the sweeper
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(o *sweeperOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSweeperMetrics enables prometheus instrumentation on the sweeper
func WithSweeperMetrics(m *Metrics) SweeperOption {
	return func(o *sweeperOptions) {
		o.metrics = m
	}
}
