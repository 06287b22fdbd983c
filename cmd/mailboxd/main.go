package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailbox/httpapi"
	"github.com/dmitrymomot/mailbox/pkg/config"
	"github.com/dmitrymomot/mailbox/pkg/httpserver"
	"github.com/dmitrymomot/mailbox/pkg/logger"
	"github.com/dmitrymomot/mailbox/pkg/mailbox"
	"github.com/dmitrymomot/mailbox/pkg/redisconn"
)

type appConfig struct {
	Backend string `env:"MAILBOX_BACKEND" envDefault:"memory"` // memory | redis

	Log     logger.Config
	HTTP    httpserver.Config
	Mailbox mailbox.Config
	Redis   redisconn.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("mailboxd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(log)

	backend, healthcheck, closeBackend, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	metrics := mailbox.NewMetrics(prometheus.DefaultRegisterer)

	svc, err := mailbox.NewService(backend, backend, backend,
		mailbox.WithTTL(cfg.Mailbox.MessageTTL),
		mailbox.WithLogger(log),
		mailbox.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to create mailbox service: %w", err)
	}

	sweeper, err := mailbox.NewSweeper(backend, backend,
		mailbox.WithSweepInterval(cfg.Mailbox.SweepInterval),
		mailbox.WithSweeperLogger(log),
		mailbox.WithSweeperMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}

	apiOpts := []httpapi.Option{httpapi.WithLogger(log)}
	if healthcheck != nil {
		apiOpts = append(apiOpts, httpapi.WithHealthcheck(healthcheck))
	}
	api, err := httpapi.NewHandler(svc, apiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create http handler: %w", err)
	}

	router := chi.NewRouter()
	router.Mount("/", api.Router())
	router.Handle("/metrics", promhttp.Handler())

	server := httpserver.New(cfg.HTTP, router, log)

	log.Info("mailboxd starting", slog.String("backend", cfg.Backend))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(sweeper.Run(ctx))
	g.Go(func() error { return server.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("graceful shutdown complete")
	return nil
}

// buildBackend wires the configured storage backend. The returned close
// function is a no-op for the in-memory backend.
func buildBackend(ctx context.Context, cfg appConfig, log *slog.Logger) (mailbox.Backend, func(context.Context) error, func(), error) {
	switch cfg.Backend {
	case "memory":
		return mailbox.NewMemoryBackend(), nil, func() {}, nil

	case "redis":
		client, err := redisconn.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		backend, err := mailbox.NewRedisBackend(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", slog.String("error", err.Error()))
			}
		}
		return backend, redisconn.Healthcheck(client), closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q, expected memory or redis", cfg.Backend)
	}
}
