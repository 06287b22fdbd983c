package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is the period between sweeper passes unless overridden.
const DefaultSweepInterval = 60 * time.Second

// Sweeper is the periodic reaper: it removes expired messages, prunes their
// ids from every consumer's seen set and reclaims empty partitions. It is
// purely a garbage-collection mechanism; retrieval filters expired messages
// on its own, the sweeper only bounds memory growth.
type Sweeper struct {
	store    Store
	seen     SeenRegistry
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates an expiry sweeper over the given store and seen registry.
func NewSweeper(store Store, seen SeenRegistry, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if seen == nil {
		return nil, ErrSeenRegistryNil
	}

	options := &sweeperOptions{
		interval: DefaultSweepInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Sweeper{
		store:    store,
		seen:     seen,
		interval: options.interval,
		now:      options.now,
		logger:   options.logger,
		metrics:  options.metrics,
	}, nil
}

// Start begins periodic sweeping in the background.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("sweeper already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop cancels the background loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("sweeper not started")
	}

	cancel()
	s.wg.Wait()
	s.logger.Info("sweeper stopped")
	return nil
}

// Run starts the sweeper and returns a function suitable for errgroup.
func (s *Sweeper) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return s.Stop()
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep performs a single pass over every organization. A message is always
// removed from the mailbox before its id is pruned from the seen registry,
// so a surviving message can never lose its seen records.
func (s *Sweeper) Sweep(ctx context.Context) error {
	orgs, err := s.store.Organizations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	total := 0
	for _, org := range orgs {
		removed, err := s.sweepOrganization(ctx, org)
		if err != nil {
			return fmt.Errorf("failed to sweep organization %s: %w", org, err)
		}
		total += removed
	}

	s.metrics.observeSweep(total)
	if total > 0 {
		s.logger.Info("sweep pass completed",
			slog.Int("organizations", len(orgs)),
			slog.Int("removed", total))
	}
	return nil
}

func (s *Sweeper) sweepOrganization(ctx context.Context, org string) (int, error) {
	msgs, err := s.store.Snapshot(ctx, org)
	if err != nil {
		return 0, err
	}

	now := s.now()
	removed := 0
	for i := range msgs {
		if !msgs[i].Expired(now) {
			continue
		}
		ok, err := s.store.RemoveOne(ctx, org, msgs[i].ID)
		if err != nil {
			return removed, err
		}
		// Only the pass that actually removed the message prunes its id;
		// a concurrent pass must not forget an id it did not remove.
		if !ok {
			continue
		}
		if err := s.seen.PruneID(ctx, org, msgs[i].ID); err != nil {
			return removed, err
		}
		removed++
	}

	if err := s.seen.PruneEmpty(ctx, org); err != nil {
		return removed, err
	}
	if err := s.store.DropIfEmpty(ctx, org); err != nil {
		return removed, err
	}
	return removed, nil
}
