// Package mailbox implements a lightweight, multi-tenant message mailbox:
// producers deposit short-lived messages tagged with an organization, a
// priority and a delivery mode; consumers poll for the highest-priority
// matching message.
//
// The package is transport-agnostic and storage-agnostic. Storage is split
// into three concerns behind interfaces:
//
//   - Store: per-organization mailboxes (append, snapshot, conditional remove)
//   - SeenRegistry: per-consumer broadcast delivery ledger
//   - IDGenerator: unique, monotonically increasing message ids
//
// Two backends satisfy all three: MemoryBackend for single-process use and
// RedisBackend for clustered deployments.
//
// # Delivery semantics
//
// A message's NotificationType decides its consumption model. Directed types
// (MAINT, EMAIL, SMS, SLACK) are consumed destructively by the first
// matching retrieval. TypeAll messages are broadcast: they stay in the
// mailbox until expiry and are delivered at most once per distinct consumer,
// tracked through the seen registry.
//
// Selection prefers HIGH over NORMAL over LOW priority; insertion order
// breaks ties within a tier. Expired messages are invisible to consumers
// even before the Sweeper has physically removed them.
//
// # Basic Usage
//
//	backend := mailbox.NewMemoryBackend()
//
//	svc, err := mailbox.NewService(backend, backend, backend)
//	if err != nil {
//	    // handle error
//	}
//
//	err = svc.Submit(ctx, &mailbox.Message{
//	    Organization:     "acme",
//	    Priority:         mailbox.PriorityHigh,
//	    NotificationType: mailbox.TypeMaint,
//	    Payload:          "maintenance window at 02:00",
//	})
//
//	msg, err := svc.Retrieve(ctx, "acme", consumerID, mailbox.TypeMaint)
//	if errors.Is(err, mailbox.ErrNoMessage) {
//	    // empty mailbox is a normal result
//	}
//
// # Expiry
//
// Messages default to a 5 minute TTL. The Sweeper runs on a fixed period and
// removes expired messages, prunes their ids from every seen set and drops
// empty partitions:
//
//	sweeper, err := mailbox.NewSweeper(backend, backend)
//	if err != nil {
//	    // handle error
//	}
//	g.Go(sweeper.Run(ctx))
//
// # Concurrency
//
// The engine is safe for an arbitrary number of concurrent producers and
// consumers plus one sweeper. Every structural mutation is a single atomic
// backend operation; when two consumers race for the same directed message,
// exactly one receives it and the other reselects.
package mailbox
