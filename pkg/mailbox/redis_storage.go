package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// redisTxRetries bounds optimistic transaction retries before giving up.
const redisTxRetries = 5

// RedisBackend is a redis-backed implementation of Store, SeenRegistry and
// IDGenerator for clustered deployments. Layout:
//
//	mailbox:msgs:<org>            list of JSON-encoded messages, insertion order
//	mailbox:orgs                  set of organizations with a mailbox
//	mailbox:seen:<org>:<consumer> set of delivered broadcast message ids
//	mailbox:consumers:<org>       set of consumers with a seen entry
//	mailbox:ids                   monotonic id counter
//
// Structural mutations are single redis commands (RPUSH, LREM, SADD) or
// WATCH/MULTI transactions, so two nodes mutating the same organization can
// never overwrite each other's writes.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend creates a mailbox backend on top of an established redis client.
func NewRedisBackend(client redis.UniversalClient) (*RedisBackend, error) {
	if client == nil {
		return nil, ErrStoreNil
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) msgsKey(org string) string { return "mailbox:msgs:" + org }

func (b *RedisBackend) seenKey(org, consumerID string) string {
	return "mailbox:seen:" + org + ":" + consumerID
}

func (b *RedisBackend) consumersKey(org string) string { return "mailbox:consumers:" + org }

const (
	orgsKey = "mailbox:orgs"
	idsKey  = "mailbox:ids"
)

func (b *RedisBackend) Append(ctx context.Context, org string, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message %d: %w", msg.ID, err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, b.msgsKey(org), raw)
		pipe.SAdd(ctx, orgsKey, org)
		return nil
	})
	return err
}

func (b *RedisBackend) Snapshot(ctx context.Context, org string) ([]Message, error) {
	raws, err := b.client.LRange(ctx, b.msgsKey(org), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode stored message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// RemoveOne locates the encoded element carrying the id and removes exactly
// that element. Message ids are unique, so the encoded value identifies a
// single list element; when two consumers race for the same message only one
// LREM reports a removal.
func (b *RedisBackend) RemoveOne(ctx context.Context, org string, id uint64) (bool, error) {
	raws, err := b.client.LRange(ctx, b.msgsKey(org), 0, -1).Result()
	if err != nil {
		return false, err
	}

	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return false, fmt.Errorf("failed to decode stored message: %w", err)
		}
		if msg.ID != id {
			continue
		}
		n, err := b.client.LRem(ctx, b.msgsKey(org), 1, raw).Result()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return false, nil
}

func (b *RedisBackend) IsEmpty(ctx context.Context, org string) (bool, error) {
	n, err := b.client.LLen(ctx, b.msgsKey(org)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// DropIfEmpty removes the organization from the index when its mailbox holds
// no messages. The check and the removal run inside a WATCH transaction so a
// concurrent append aborts the drop instead of being lost.
func (b *RedisBackend) DropIfEmpty(ctx context.Context, org string) error {
	key := b.msgsKey(org)

	drop := func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, orgsKey, org)
			return nil
		})
		return err
	}

	for range redisTxRetries {
		err := b.client.Watch(ctx, drop, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // concurrent append, re-check
		}
		return err
	}
	return nil
}

func (b *RedisBackend) Organizations(ctx context.Context) ([]string, error) {
	return b.client.SMembers(ctx, orgsKey).Result()
}

func (b *RedisBackend) HasSeen(ctx context.Context, org, consumerID string, id uint64) (bool, error) {
	return b.client.SIsMember(ctx, b.seenKey(org, consumerID), formatID(id)).Result()
}

func (b *RedisBackend) MarkSeen(ctx context.Context, org, consumerID string, id uint64) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, b.seenKey(org, consumerID), formatID(id))
		pipe.SAdd(ctx, b.consumersKey(org), consumerID)
		return nil
	})
	return err
}

func (b *RedisBackend) SeenIDs(ctx context.Context, org, consumerID string) ([]uint64, error) {
	members, err := b.client.SMembers(ctx, b.seenKey(org, consumerID)).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse seen id %q: %w", member, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *RedisBackend) PruneID(ctx context.Context, org string, id uint64) error {
	consumers, err := b.client.SMembers(ctx, b.consumersKey(org)).Result()
	if err != nil {
		return err
	}
	if len(consumers) == 0 {
		return nil
	}

	_, err = b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, consumerID := range consumers {
			pipe.SRem(ctx, b.seenKey(org, consumerID), formatID(id))
		}
		return nil
	})
	return err
}

func (b *RedisBackend) PruneEmpty(ctx context.Context, org string) error {
	consumers, err := b.client.SMembers(ctx, b.consumersKey(org)).Result()
	if err != nil {
		return err
	}

	for _, consumerID := range consumers {
		n, err := b.client.SCard(ctx, b.seenKey(org, consumerID)).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, b.seenKey(org, consumerID))
			pipe.SRem(ctx, b.consumersKey(org), consumerID)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Next returns a cluster-wide unique, strictly increasing message id backed
// by a shared redis counter.
func (b *RedisBackend) Next(ctx context.Context) (uint64, error) {
	id, err := b.client.Incr(ctx, idsKey).Result()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
