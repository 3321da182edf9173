package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message represents a message read from a Redis stream.
type Message struct {
	ID    string // Redis message ID (e.g., "1702000000000-0")
	Event ActivityEvent
}

// Consumer defines the interface for consuming events from a stream.
type Consumer interface {
	// EnsureGroup creates the consumer group if it doesn't exist.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read returns messages never delivered to any consumer of the group,
	// blocking up to block for new ones.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns messages delivered to this consumer but not acknowledged,
	// e.g. in flight when the process last stopped.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// Ack removes messages from the group's pending list.
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
}

// RedisConsumer implements Consumer using Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

// NewConsumer creates a new Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup creates the group (and the stream) reading from the beginning.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			log.Printf("[Consumer] EnsureGroup: stream=%s group=%s (already exists)", stream, group)
			return nil
		}
		log.Printf("[Consumer] EnsureGroup FAILED: stream=%s group=%s err=%v", stream, group, err)
		return fmt.Errorf("create consumer group: %w", err)
	}

	log.Printf("[Consumer] EnsureGroup OK: stream=%s group=%s (created)", stream, group)
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		// Timeout - no new messages
		return nil, nil
	}
	if err != nil {
		log.Printf("[Consumer] Read FAILED: stream=%s group=%s consumer=%s err=%v", stream, group, consumer, err)
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	messages := parseStreams(streams)
	log.Printf("[Consumer] Read OK: stream=%s consumer=%s count=%d", stream, consumer, len(messages))
	return messages, nil
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	// "0" instead of ">" replays this consumer's pending entries
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
		log.Printf("[Consumer] ReadPending FAILED: stream=%s consumer=%s err=%v", stream, consumer, err)
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}

	messages := parseStreams(streams)
	log.Printf("[Consumer] ReadPending OK: stream=%s consumer=%s count=%d", stream, consumer, len(messages))
	return messages, nil
}

// Ack acknowledges messages using XACK.
func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		log.Printf("[Consumer] Ack FAILED: stream=%s group=%s ids=%v err=%v", stream, group, messageIDs, err)
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// parseStreams decodes stream entries. Malformed entries keep an empty event
// so the caller still acknowledges them.
func parseStreams(streams []redis.XStream) []Message {
	var messages []Message
	for _, s := range streams {
		for _, msg := range s.Messages {
			event, err := ParseActivityEvent(msg.Values)
			if err != nil {
				log.Printf("[Consumer] parse error: msgID=%s err=%v", msg.ID, err)
			}
			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}
	return messages
}
