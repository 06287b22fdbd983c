package mailbox

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// MemoryBackend is an in-memory implementation of Store, SeenRegistry and
// IDGenerator. Suitable for single-process deployments, development and
// testing. All mutations happen under one lock, so every operation is atomic
// with respect to concurrent producers, consumers and the sweeper.
type MemoryBackend struct {
	mu       sync.RWMutex
	messages map[string][]Message                   // organization -> messages in insertion order
	seen     map[string]map[string]map[uint64]bool // organization -> consumerID -> seen ids
	lastID   atomic.Uint64
}

// NewMemoryBackend creates an empty in-memory mailbox backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		messages: make(map[string][]Message),
		seen:     make(map[string]map[string]map[uint64]bool),
	}
}

func (b *MemoryBackend) Append(ctx context.Context, org string, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages[org] = append(b.messages[org], msg)
	return nil
}

func (b *MemoryBackend) Snapshot(ctx context.Context, org string) ([]Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Copy so callers never observe (or cause) mutations of the live slice.
	return slices.Clone(b.messages[org]), nil
}

func (b *MemoryBackend) RemoveOne(ctx context.Context, org string, id uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.messages[org]
	for i := range msgs {
		if msgs[i].ID == id {
			b.messages[org] = slices.Delete(msgs, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (b *MemoryBackend) IsEmpty(ctx context.Context, org string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.messages[org]) == 0, nil
}

func (b *MemoryBackend) DropIfEmpty(ctx context.Context, org string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msgs, exists := b.messages[org]; exists && len(msgs) == 0 {
		delete(b.messages, org)
	}
	return nil
}

func (b *MemoryBackend) Organizations(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	orgs := make([]string, 0, len(b.messages))
	for org := range b.messages {
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func (b *MemoryBackend) HasSeen(ctx context.Context, org, consumerID string, id uint64) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.seen[org][consumerID][id], nil
}

func (b *MemoryBackend) MarkSeen(ctx context.Context, org, consumerID string, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	consumers, exists := b.seen[org]
	if !exists {
		consumers = make(map[string]map[uint64]bool)
		b.seen[org] = consumers
	}
	ids, exists := consumers[consumerID]
	if !exists {
		ids = make(map[uint64]bool)
		consumers[consumerID] = ids
	}
	ids[id] = true
	return nil
}

func (b *MemoryBackend) SeenIDs(ctx context.Context, org, consumerID string) ([]uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.seen[org][consumerID]
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]uint64, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out, nil
}

func (b *MemoryBackend) PruneID(ctx context.Context, org string, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ids := range b.seen[org] {
		delete(ids, id)
	}
	return nil
}

func (b *MemoryBackend) PruneEmpty(ctx context.Context, org string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	consumers := b.seen[org]
	for consumerID, ids := range consumers {
		if len(ids) == 0 {
			delete(consumers, consumerID)
		}
	}
	if len(consumers) == 0 {
		delete(b.seen, org)
	}
	return nil
}

// Next returns a process-wide unique, strictly increasing message id.
func (b *MemoryBackend) Next(ctx context.Context) (uint64, error) {
	return b.lastID.Add(1), nil
}
