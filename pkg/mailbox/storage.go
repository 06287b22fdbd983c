package mailbox

import "context"

// Store owns the per-organization mailboxes. Implementations must make every
// operation atomic with respect to concurrent callers on the same
// organization; callers never read-modify-write a mailbox themselves.
type Store interface {
	// Append adds a message to the organization's mailbox, creating the
	// mailbox if it does not exist yet.
	Append(ctx context.Context, org string, msg Message) error

	// Snapshot returns a point-in-time copy of the mailbox contents in
	// insertion order. Later mutations of the store are not visible in the
	// returned slice, and mutating the slice does not affect the store.
	Snapshot(ctx context.Context, org string) ([]Message, error)

	// RemoveOne removes the message with the given id if present and reports
	// whether a removal occurred. Removing an absent id is a no-op.
	RemoveOne(ctx context.Context, org string, id uint64) (bool, error)

	// IsEmpty reports whether the organization currently holds no messages.
	IsEmpty(ctx context.Context, org string) (bool, error)

	// DropIfEmpty reclaims the organization's partition when its mailbox is
	// empty, so drained tenants do not leak entries indefinitely.
	DropIfEmpty(ctx context.Context, org string) error

	// Organizations lists every organization that currently has a mailbox.
	Organizations(ctx context.Context) ([]string, error)
}

// SeenRegistry records which broadcast message ids have already been
// delivered to which consumer, per organization.
type SeenRegistry interface {
	// HasSeen reports whether the consumer already received the message.
	HasSeen(ctx context.Context, org, consumerID string, id uint64) (bool, error)

	// MarkSeen records a broadcast delivery. Marking an already-seen id is a
	// no-op.
	MarkSeen(ctx context.Context, org, consumerID string, id uint64) error

	// SeenIDs returns every message id the consumer has already received
	// under the organization.
	SeenIDs(ctx context.Context, org, consumerID string) ([]uint64, error)

	// PruneID removes the message id from every consumer's seen set under
	// the organization. Called when the message expires or is removed.
	PruneID(ctx context.Context, org string, id uint64) error

	// PruneEmpty removes consumer entries whose seen set became empty.
	PruneEmpty(ctx context.Context, org string) error
}

// IDGenerator produces unique, strictly increasing message ids. Safe for
// concurrent use; on a clustered backend no two nodes ever return the same id.
type IDGenerator interface {
	Next(ctx context.Context) (uint64, error)
}

// Backend bundles the three storage concerns a full mailbox deployment needs.
// Both the in-memory and the redis implementations satisfy it.
type Backend interface {
	Store
	SeenRegistry
	IDGenerator
}
