package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a mutable time source for expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T) (*Service, *MemoryBackend, *fakeClock) {
	t.Helper()

	backend := NewMemoryBackend()
	clock := newFakeClock()
	svc, err := NewService(backend, backend, backend, WithClock(clock.Now))
	require.NoError(t, err)
	return svc, backend, clock
}

func TestService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	err := svc.Submit(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, ErrNilMessage)

	err = svc.Submit(ctx, &Message{Payload: "no org"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, ErrNoOrganization)
}

func TestService_SubmitDefaults(t *testing.T) {
	ctx := context.Background()
	svc, backend, clock := newTestService(t)

	msg := &Message{Organization: "acme", Payload: "hello"}
	require.NoError(t, svc.Submit(ctx, msg))

	assert.NotZero(t, msg.ID)
	assert.Equal(t, "ACME", msg.Organization)
	assert.Equal(t, PriorityNormal, msg.Priority)
	assert.Equal(t, TypeAll, msg.NotificationType)
	assert.Equal(t, clock.Now().Add(DefaultTTL), msg.ExpiresAt)
	assert.Equal(t, clock.Now(), msg.CreatedAt)

	stored, err := backend.Snapshot(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *msg, stored[0])
}

func TestService_SubmitPreservesExplicitValues(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)

	expires := clock.Now().Add(time.Hour)
	msg := &Message{
		Organization:     "acme",
		Priority:         PriorityHigh,
		NotificationType: TypeMaint,
		Payload:          "p",
		ExpiresAt:        expires,
	}
	require.NoError(t, svc.Submit(ctx, msg))

	assert.Equal(t, PriorityHigh, msg.Priority)
	assert.Equal(t, TypeMaint, msg.NotificationType)
	assert.Equal(t, expires, msg.ExpiresAt)
}

func TestService_SubmitAssignsUniqueIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	var last uint64
	for range 10 {
		msg := &Message{Organization: "acme"}
		require.NoError(t, svc.Submit(ctx, msg))
		assert.Greater(t, msg.ID, last)
		last = msg.ID
	}
}

func TestService_RetrievePriorityOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, m := range []*Message{
		{Organization: "acme", Priority: PriorityLow, NotificationType: TypeMaint, Payload: "A"},
		{Organization: "acme", Priority: PriorityHigh, NotificationType: TypeMaint, Payload: "B"},
		{Organization: "acme", Priority: PriorityNormal, NotificationType: TypeMaint, Payload: "C"},
	} {
		require.NoError(t, svc.Submit(ctx, m))
	}

	var got []string
	for range 3 {
		msg, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
		require.NoError(t, err)
		got = append(got, msg.Payload)
	}
	assert.Equal(t, []string{"B", "C", "A"}, got)

	_, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestService_RetrieveInsertionOrderWithinTier(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, payload := range []string{"first", "second", "third"} {
		require.NoError(t, svc.Submit(ctx, &Message{
			Organization:     "acme",
			NotificationType: TypeEmail,
			Payload:          payload,
		}))
	}

	for _, want := range []string{"first", "second", "third"} {
		msg, err := svc.Retrieve(ctx, "acme", "c1", TypeEmail)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Payload)
	}
}

func TestService_RetrieveDirectedConsumesOnce(t *testing.T) {
	ctx := context.Background()
	svc, backend, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeMaint,
		Payload:          "one shot",
	}))

	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "one shot", msg.Payload)

	// Gone for everyone, including other consumers.
	_, err = svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)
	_, err = svc.Retrieve(ctx, "acme", "c2", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)

	stored, err := backend.Snapshot(ctx, "ACME")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestService_RetrieveBroadcastDedupPerConsumer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization: "acme",
		Payload:      "p2",
	}))

	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeAll)
	require.NoError(t, err)
	assert.Equal(t, "p2", msg.Payload)

	// Never twice to the same consumer.
	_, err = svc.Retrieve(ctx, "acme", "c1", TypeAll)
	assert.ErrorIs(t, err, ErrNoMessage)

	// Still available to a different consumer.
	msg, err = svc.Retrieve(ctx, "acme", "c2", TypeAll)
	require.NoError(t, err)
	assert.Equal(t, "p2", msg.Payload)
}

func TestService_RetrieveBroadcastMatchesDirectedFilter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeAll,
		Payload:          "for everyone",
	}))

	// Broadcast messages are visible under every filter.
	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "for everyone", msg.Payload)

	// The broadcast side effect applies: it stays in the mailbox.
	msg, err = svc.Retrieve(ctx, "acme", "c2", TypeSlack)
	require.NoError(t, err)
	assert.Equal(t, "for everyone", msg.Payload)
}

func TestService_RetrieveTypeFilterExcludesOtherDirectedTypes(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeEmail,
		Payload:          "email only",
	}))

	_, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)

	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeEmail)
	require.NoError(t, err)
	assert.Equal(t, "email only", msg.Payload)
}

func TestService_RetrieveDirectedInvisibleToBroadcastPoll(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeMaint,
		Payload:          "directed",
	}))

	// Polling without a filter matches only broadcast messages and messages
	// of the requested type; MAINT is not ALL.
	_, err := svc.Retrieve(ctx, "acme", "c1", TypeAll)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestService_RetrieveExpiredInvisibleBeforeSweep(t *testing.T) {
	ctx := context.Background()
	svc, backend, clock := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeMaint,
		Payload:          "short lived",
		ExpiresAt:        clock.Now().Add(time.Second),
	}))

	clock.Advance(2 * time.Second)

	// No sweeper has run; the message is still physically stored but must
	// not be returned.
	stored, err := backend.Snapshot(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	_, err = svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestService_RetrieveSkipsExpiredPicksNext(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		Priority:         PriorityHigh,
		NotificationType: TypeMaint,
		Payload:          "expired high",
		ExpiresAt:        clock.Now().Add(time.Second),
	}))
	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		Priority:         PriorityLow,
		NotificationType: TypeMaint,
		Payload:          "live low",
	}))

	clock.Advance(2 * time.Second)

	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "live low", msg.Payload)
}

func TestService_OrganizationNormalization(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "Acme",
		NotificationType: TypeMaint,
		Payload:          "case test",
	}))

	msg, err := svc.Retrieve(ctx, "aCmE", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "case test", msg.Payload)
	assert.Equal(t, "ACME", msg.Organization)
}

func TestService_RetrieveDefaultOrganization(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     DefaultOrganization,
		NotificationType: TypeMaint,
		Payload:          "tenantless",
	}))

	// An empty organization on retrieve falls back to the default tenant.
	msg, err := svc.Retrieve(ctx, "", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "tenantless", msg.Payload)
}

func TestService_RetrieveUnknownFilter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Retrieve(ctx, "acme", "c1", NotificationType("BOGUS"))
	assert.ErrorIs(t, err, ErrUnknownNotificationType)
}

func TestService_RetrieveIsolatedPerOrganization(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "acme",
		NotificationType: TypeMaint,
		Payload:          "acme only",
	}))

	_, err := svc.Retrieve(ctx, "globex", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestService_RetrieveReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc, backend, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization: "acme",
		Payload:      "shared",
	}))

	msg, err := svc.Retrieve(ctx, "acme", "c1", TypeAll)
	require.NoError(t, err)

	msg.Payload = "tampered"

	stored, err := backend.Snapshot(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "shared", stored[0].Payload)
}

// End-to-end scenario: a directed HIGH message is delivered once and gone, a
// broadcast message reaches each consumer exactly once.
func TestService_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization:     "ACME",
		Priority:         PriorityHigh,
		NotificationType: TypeMaint,
		Payload:          "p1",
	}))

	msg, err := svc.Retrieve(ctx, "ACME", "c1", TypeMaint)
	require.NoError(t, err)
	assert.Equal(t, "p1", msg.Payload)

	_, err = svc.Retrieve(ctx, "ACME", "c1", TypeMaint)
	assert.ErrorIs(t, err, ErrNoMessage)

	require.NoError(t, svc.Submit(ctx, &Message{
		Organization: "ACME",
		Payload:      "p2",
	}))

	msg, err = svc.Retrieve(ctx, "ACME", "c1", TypeAll)
	require.NoError(t, err)
	assert.Equal(t, "p2", msg.Payload)

	_, err = svc.Retrieve(ctx, "ACME", "c1", TypeAll)
	assert.ErrorIs(t, err, ErrNoMessage)

	msg, err = svc.Retrieve(ctx, "ACME", "c2", TypeAll)
	require.NoError(t, err)
	assert.Equal(t, "p2", msg.Payload)
}
