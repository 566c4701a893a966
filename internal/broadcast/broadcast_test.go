package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Deliver(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

func TestNewEvent_Payloads(t *testing.T) {
	ev := GameChanged(&domain.Game{ID: 4, Title: "Azul", Amount: 3, Quantity: 2})
	assert.Equal(t, EventGameQuantityChanged, ev.Type)
	assert.NotEmpty(t, ev.ID)

	var game domain.Game
	require.NoError(t, json.Unmarshal(ev.Payload, &game))
	assert.Equal(t, int32(2), game.Quantity)

	del := RentalDeleted(9)
	assert.JSONEq(t, `{"id":9}`, string(del.Payload))

	snap := SnapshotEvent(&Snapshot{Games: []domain.Game{}, Rentals: []domain.Rental{}})
	assert.Empty(t, snap.ID)
	assert.JSONEq(t, `{"games":[],"rentals":[]}`, string(snap.Payload))
}

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(4)
	a, unsubA := hub.Subscribe()
	b, unsubB := hub.Subscribe()
	defer unsubA()
	defer unsubB()

	require.NoError(t, hub.Deliver(context.Background(), RentalDeleted(1)))

	assert.Equal(t, EventRentalDeleted, (<-a.Events()).Type)
	assert.Equal(t, EventRentalDeleted, (<-b.Events()).Type)
	assert.Equal(t, 2, hub.Len())
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(1)
	sub, unsubscribe := hub.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())
}

func TestHub_EvictsSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	slow, _ := hub.Subscribe()
	fast, unsubFast := hub.Subscribe()
	defer unsubFast()

	ctx := context.Background()
	require.NoError(t, hub.Deliver(ctx, RentalDeleted(1)))
	<-fast.Events()
	require.NoError(t, hub.Deliver(ctx, RentalDeleted(2)))

	// slow still holds the first event; its channel is closed after it.
	first, open := <-slow.Events()
	require.True(t, open)
	assert.JSONEq(t, `{"id":1}`, string(first.Payload))
	_, open = <-slow.Events()
	assert.False(t, open)

	assert.Equal(t, 1, hub.Len())
	second := <-fast.Events()
	assert.JSONEq(t, `{"id":2}`, string(second.Payload))
}

func TestOutbox_DeliversInOrderToEverySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{err: errors.New("relay down")}
	outbox := NewOutbox(8, first, second)
	outbox.Start()

	outbox.Publish(RentalCreated(&domain.Rental{ID: 1}), GameChanged(&domain.Game{ID: 1}))
	outbox.Close()

	want := []EventType{EventRentalCreated, EventGameQuantityChanged}
	assert.Equal(t, want, first.types())
	assert.Equal(t, want, second.types())
}

func TestOutbox_DropsWhenFullOrClosed(t *testing.T) {
	sink := &recordingSink{}
	outbox := NewOutbox(1, sink)

	outbox.Publish(RentalDeleted(1), RentalDeleted(2))
	outbox.Start()
	outbox.Close()
	outbox.Publish(RentalDeleted(3))
	outbox.Close()

	assert.Len(t, sink.events, 1)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Publish(RentalDeleted(1), RentalDeleted(2))
		Discard.Publish()
	})
}

func TestRedisRelay_ForwardSkipsOwnEvents(t *testing.T) {
	local := &recordingSink{}
	relay := NewRedisRelay(nil, "test", local)

	own, err := json.Marshal(envelope{Origin: relay.InstanceID(), Event: RentalDeleted(1)})
	require.NoError(t, err)
	foreign, err := json.Marshal(envelope{Origin: "other-instance", Event: RentalDeleted(2)})
	require.NoError(t, err)

	relay.forward(context.Background(), string(own))
	relay.forward(context.Background(), "not json")
	relay.forward(context.Background(), string(foreign))

	require.Len(t, local.events, 1)
	assert.JSONEq(t, `{"id":2}`, string(local.events[0].Payload))
}

func TestRedisRelay_RunWithRetryOutlivesUnreachableRedis(t *testing.T) {
	// Nothing listens on port 1, so every subscribe attempt fails fast.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	relay := NewRedisRelay(client, "test", &recordingSink{})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := relay.RunWithRetry(ctx, 10*time.Millisecond, 40*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)

	// A plain Run gives up on the first failure.
	err = relay.Run(context.Background())
	assert.Error(t, err)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 20*time.Millisecond, nextBackoff(10*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, nextBackoff(800*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, nextBackoff(time.Second, time.Second))
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisRelay_CrossInstance(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	channel := "boardgame-rental:test:" + t.Name()
	received := &recordingSink{}
	subscriber := NewRedisRelay(client, channel, received)
	publisher := NewRedisRelay(client, channel, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go subscriber.Run(ctx)

	// Publish until the subscriber is confirmed and sees the event.
	require.Eventually(t, func() bool {
		_ = publisher.Deliver(ctx, RentalDeleted(5))
		return len(received.types()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, EventRentalDeleted, received.types()[0])
}
