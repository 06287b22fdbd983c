package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service is the mailbox engine: it validates and stores inbound messages
// and selects the single best visible message for a polling consumer.
type Service struct {
	store   Store
	seen    SeenRegistry
	ids     IDGenerator
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// NewService creates a mailbox service on top of the given storage concerns.
func NewService(store Store, seen SeenRegistry, ids IDGenerator, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if seen == nil {
		return nil, ErrSeenRegistryNil
	}
	if ids == nil {
		return nil, ErrIDGeneratorNil
	}

	options := &serviceOptions{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Service{
		store:   store,
		seen:    seen,
		ids:     ids,
		ttl:     options.ttl,
		now:     options.now,
		logger:  options.logger,
		metrics: options.metrics,
	}, nil
}

// Submit validates the message, assigns its id, applies defaults and appends
// it to the organization's mailbox. On failure nothing is stored; the caller
// must not assume delivery.
func (s *Service) Submit(ctx context.Context, msg *Message) error {
	if err := Validate(msg); err != nil {
		return err
	}

	msg.Organization = NormalizeOrganization(msg.Organization)

	id, err := s.ids.Next(ctx)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	msg.ID = id

	now := s.now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.Priority == "" {
		msg.Priority = PriorityNormal
	}
	if msg.NotificationType == "" {
		msg.NotificationType = TypeAll
	}
	if msg.ExpiresAt.IsZero() {
		msg.ExpiresAt = now.Add(s.ttl)
	}

	if err := s.store.Append(ctx, msg.Organization, *msg); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}

	s.metrics.observeSubmit(msg)
	s.logger.InfoContext(ctx, "message stored",
		slog.Uint64("message_id", msg.ID),
		slog.String("organization", msg.Organization),
		slog.String("priority", string(msg.Priority)),
		slog.String("notification_type", string(msg.NotificationType)))

	return nil
}

// Retrieve returns a copy of the highest-priority visible message for the
// consumer, or ErrNoMessage when none matches. An empty filter is treated as
// TypeAll. Directed messages are removed on delivery; broadcast messages are
// recorded as seen for this consumer and stay available to others.
func (s *Service) Retrieve(ctx context.Context, org, consumerID string, filter NotificationType) (*Message, error) {
	org = NormalizeOrganization(org)
	if filter == "" {
		filter = TypeAll
	}
	if !filter.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotificationType, filter)
	}

	for {
		selected, err := s.selectMessage(ctx, org, consumerID, filter)
		if err != nil {
			return nil, err
		}

		if selected.NotificationType.Broadcast() {
			if err := s.seen.MarkSeen(ctx, org, consumerID, selected.ID); err != nil {
				return nil, errors.Join(ErrStorageFailure, err)
			}
			s.deliver(ctx, selected, consumerID)
			return selected, nil
		}

		removed, err := s.store.RemoveOne(ctx, org, selected.ID)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		if removed {
			s.deliver(ctx, selected, consumerID)
			return selected, nil
		}

		// Another consumer won the race for this directed message between
		// snapshot and removal. Select again from the current state.
		s.logger.DebugContext(ctx, "directed message taken by concurrent consumer, reselecting",
			slog.Uint64("message_id", selected.ID),
			slog.String("organization", org))
	}
}

// selectMessage applies the visibility predicates (unexpired, type match,
// not seen) to a mailbox snapshot and picks one message by priority tier and
// insertion order.
func (s *Service) selectMessage(ctx context.Context, org, consumerID string, filter NotificationType) (*Message, error) {
	msgs, err := s.store.Snapshot(ctx, org)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessage
	}

	var seen map[uint64]bool
	if filter == TypeAll {
		ids, err := s.seen.SeenIDs(ctx, org, consumerID)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		seen = make(map[uint64]bool, len(ids))
		for _, id := range ids {
			seen[id] = true
		}
	}

	now := s.now()
	candidates := msgs[:0]
	for i := range msgs {
		if visible(&msgs[i], now, filter, seen) {
			candidates = append(candidates, msgs[i])
		}
	}

	for _, tier := range priorityTiers {
		for i := range candidates {
			if candidates[i].Priority == tier {
				msg := candidates[i]
				return &msg, nil
			}
		}
	}
	return nil, ErrNoMessage
}

// visible reports whether the message may be offered to the consumer.
// Expired messages are invisible even before the sweeper removes them.
// Broadcast messages match every filter; the seen set applies only when the
// consumer polls without a directed filter.
func visible(msg *Message, now time.Time, filter NotificationType, seen map[uint64]bool) bool {
	if msg.Expired(now) {
		return false
	}
	if msg.NotificationType != filter && msg.NotificationType != TypeAll {
		return false
	}
	if filter == TypeAll && seen[msg.ID] {
		return false
	}
	return true
}

func (s *Service) deliver(ctx context.Context, msg *Message, consumerID string) {
	s.metrics.observeDelivery(msg)
	s.logger.InfoContext(ctx, "message delivered",
		slog.Uint64("message_id", msg.ID),
		slog.String("organization", msg.Organization),
		slog.String("consumer_id", consumerID),
		slog.String("notification_type", string(msg.NotificationType)))
}
