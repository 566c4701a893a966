package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
)

// envelope tags a relayed event with the instance that committed it.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisRelay shares events between instances over a Redis channel. As a
// Sink it publishes locally committed events; Run forwards events committed
// elsewhere to the local sink.
type RedisRelay struct {
	client     *redis.Client
	channel    string
	instanceID string
	local      Sink
}

func NewRedisRelay(client *redis.Client, channel string, local Sink) *RedisRelay {
	return &RedisRelay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		local:      local,
	}
}

// InstanceID identifies this process on the relay channel.
func (r *RedisRelay) InstanceID() string {
	return r.instanceID
}

func (r *RedisRelay) Deliver(ctx context.Context, ev Event) error {
	data, err := json.Marshal(envelope{Origin: r.instanceID, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to encode relay envelope: %w", err)
	}

	logger.ExternalServiceCall("redis", "PUBLISH", "channel", r.channel, "event_id", ev.ID)
	err = r.client.Publish(ctx, r.channel, data).Err()
	logger.ExternalServiceResult("redis", "PUBLISH", err, "channel", r.channel)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// Run subscribes to the relay channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	_, err := r.run(ctx)
	return err
}

// RunWithRetry keeps the subscription alive until ctx is cancelled. Failed
// attempts back off exponentially from minBackoff up to maxBackoff; a
// subscription that was confirmed and later dropped retries at minBackoff.
func (r *RedisRelay) RunWithRetry(ctx context.Context, minBackoff, maxBackoff time.Duration) error {
	backoff := minBackoff
	for {
		subscribed, err := r.run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			backoff = minBackoff
		}
		metrics.RecordBroadcast("relay_retry")
		logger.Warn("Relay subscription lost, retrying", "channel", r.channel, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if next := cur * 2; next < limit {
		return next
	}
	return limit
}

// run reports whether the subscription was confirmed before it ended.
func (r *RedisRelay) run(ctx context.Context) (bool, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	logger.Info("Relay subscribed", "channel", r.channel, "instance_id", r.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, fmt.Errorf("subscription to %s closed", r.channel)
			}
			r.forward(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logger.Warn("Ignoring malformed relay message", "channel", r.channel, "error", err)
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	if err := r.local.Deliver(ctx, env.Event); err != nil {
		logger.Warn("Relay delivery failed", "event_id", env.Event.ID, "error", err)
	}
}
