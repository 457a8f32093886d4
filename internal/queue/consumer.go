package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one entry read from a stream.
type Message struct {
	ID    string    // Redis message id (e.g. "1702000000000-0")
	Event FeedEvent // Parsed payload
}

// Consumer reads events from a stream via a consumer group.
type Consumer interface {
	// EnsureGroup creates the consumer group if missing. Call at startup.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read fetches new messages for this consumer with XREADGROUP.
	// count caps messages per call; block is how long to wait for new ones.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// Ack removes processed messages from the consumer's pending list.
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error

	// Pending returns the group's unacknowledged message count.
	Pending(ctx context.Context, stream, group string) (int64, error)

	// ReadPending re-reads messages delivered to this consumer but never
	// acked, so work in flight during a crash is not lost.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)
}

// RedisConsumer implements Consumer on Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

// NewConsumer creates a Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup runs XGROUP CREATE with MKSTREAM. Starting at "0" lets a
// fresh group drain messages published before it existed.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()

	if err != nil {
		// BUSYGROUP = the group already exists
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			log.Printf("[Consumer] EnsureGroup: stream=%s group=%s (already exists)", stream, group)
			return nil
		}
		log.Printf("[Consumer] EnsureGroup FAILED: stream=%s group=%s err=%v", stream, group, err)
		return fmt.Errorf("create consumer group: %w", err)
	}

	log.Printf("[Consumer] EnsureGroup OK: stream=%s group=%s (created)", stream, group)
	return nil
}

// Read blocks on XREADGROUP with ">" so only messages never delivered to
// any consumer are returned.
func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()

	if err == redis.Nil {
		// Block timeout, nothing new
		return nil, nil
	}
	if err != nil {
		log.Printf("[Consumer] Read FAILED: stream=%s group=%s consumer=%s err=%v", stream, group, consumer, err)
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	messages, malformed := collectMessages(streams)
	c.ackMalformed(ctx, stream, group, malformed)
	return messages, nil
}

// Ack acknowledges messages with XACK.
func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	_, err := c.client.XAck(ctx, stream, group, messageIDs...).Result()
	if err != nil {
		log.Printf("[Consumer] Ack FAILED: stream=%s group=%s ids=%v err=%v", stream, group, messageIDs, err)
		return fmt.Errorf("xack: %w", err)
	}

	return nil
}

// Pending returns the group's unacknowledged message count via XPENDING.
func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		log.Printf("[Consumer] Pending FAILED: stream=%s group=%s err=%v", stream, group, err)
		return 0, fmt.Errorf("xpending: %w", err)
	}

	return info.Count, nil
}

// ReadPending replays this consumer's own pending entries by reading from
// id "0" instead of ">". Run once at startup before the main loop.
func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
	}).Result()

	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		log.Printf("[Consumer] ReadPending FAILED: stream=%s group=%s consumer=%s err=%v", stream, group, consumer, err)
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}

	messages, malformed := collectMessages(streams)
	c.ackMalformed(ctx, stream, group, malformed)
	if len(messages) > 0 {
		log.Printf("[Consumer] ReadPending OK: stream=%s group=%s consumer=%s count=%d", stream, group, consumer, len(messages))
	}
	return messages, nil
}

// ackMalformed acknowledges unparseable entries immediately. Left unacked
// they would sit in the pending list and replay on every restart without
// ever succeeding.
func (c *RedisConsumer) ackMalformed(ctx context.Context, stream, group string, messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}
	log.Printf("[Consumer] dropping malformed entries: stream=%s ids=%v", stream, messageIDs)
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		log.Printf("[Consumer] drop ack FAILED: stream=%s ids=%v err=%v", stream, messageIDs, err)
	}
}

// collectMessages parses stream entries, separating well-formed messages
// from the ids of malformed ones so the caller can ack the latter.
func collectMessages(streams []redis.XStream) (messages []Message, malformed []string) {
	for _, s := range streams {
		for _, msg := range s.Messages {
			event, err := ParseFeedEvent(msg.Values)
			if err != nil {
				log.Printf("[Consumer] parse error: msgID=%s err=%v", msg.ID, err)
				malformed = append(malformed, msg.ID)
				continue
			}
			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}
	return messages, malformed
}
