package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/crashwatch/internal/source"
)

// Client wraps Redis operations for the historical report queue. The crash
// reporter appends tombstone-with-headers entries to a stream; the queue
// source drains them in arrival order. Stream entry ids carry the entry's
// recorded time.
type Client struct {
	rdb    *redis.Client
	stream string
	lastID string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
}

const defaultStream = "crashwatch:tombstones"

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}

	return &Client{rdb: rdb, stream: stream, lastID: "0"}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PopEntry implements source.QueuePopper. It blocks up to timeout waiting
// for the next entry; ok is false when none arrived.
func (c *Client) PopEntry(ctx context.Context, timeout time.Duration) (source.QueueEntry, bool, error) {
	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{c.stream, c.lastID},
		Count:   1,
		Block:   timeout,
	}).Result()
	if err == redis.Nil {
		return source.QueueEntry{}, false, nil
	}
	if err != nil {
		return source.QueueEntry{}, false, fmt.Errorf("xread failed: %w", err)
	}

	if len(res) == 0 || len(res[0].Messages) == 0 {
		return source.QueueEntry{}, false, nil
	}

	msg := res[0].Messages[0]
	c.lastID = msg.ID

	payload, _ := msg.Values["payload"].(string)

	return source.QueueEntry{
		Payload:   []byte(payload),
		Timestamp: entryTime(msg.ID),
	}, true, nil
}

// PushEntry appends an envelope to the queue. Used by tooling and tests.
func (c *Client) PushEntry(ctx context.Context, payload []byte) error {
	err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]any{"payload": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}
	return nil
}

// entryTime extracts the millisecond timestamp component of a stream id.
func entryTime(id string) time.Time {
	msPart, _, _ := strings.Cut(id, "-")
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
