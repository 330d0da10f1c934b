package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

const (
	fieldEvent   = "event"
	fieldPayload = "payload"
)

// Connect initializes a Redis client from a redis:// URL or a host:port address
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Transport implements queue.Transport on Redis Streams
type Transport struct {
	client *redis.Client
	config config.Redis
	log    *zap.Logger
}

var _ queue.Transport = (*Transport)(nil)

func NewTransport(client *redis.Client, cfg config.Redis, log *zap.Logger) *Transport {
	if cfg.GroupStartID == "" {
		cfg.GroupStartID = "0"
	}
	return &Transport{client: client, config: cfg, log: log}
}

func (t *Transport) Append(ctx context.Context, stream, event string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: []any{fieldEvent, event, fieldPayload, string(payload)},
	}
	if t.config.StreamMaxLen > 0 {
		args.MaxLen = t.config.StreamMaxLen
		args.Approx = true
	}

	id, err := t.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("XADD %s: %w", stream, err)
	}
	return id, nil
}

func (t *Transport) EnsureGroup(ctx context.Context, stream, group string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, group, t.config.GroupStartID).Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("XGROUP CREATE %s %s: %w", stream, group, err)
	}
	return nil
}

func (t *Transport) ReadBatch(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Entry, error) {
	entries, err := t.reclaim(ctx, stream, group, consumer, count)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}

	if block == 0 {
		block = -1
	}
	streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, wrapGroupErr("XREADGROUP", stream, group, err)
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, toEntry(msg, 1))
		}
	}
	return entries, nil
}

// reclaim claims entries that another consumer read but never acked
func (t *Transport) reclaim(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Entry, error) {
	if t.config.ReclaimIdle <= 0 {
		return nil, nil
	}

	pending, err := t.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Idle:   t.config.ReclaimIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, wrapGroupErr("XPENDING", stream, group, err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	retries := make(map[string]int64, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
		retries[p.ID] = p.RetryCount
	}

	msgs, err := t.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  t.config.ReclaimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, wrapGroupErr("XCLAIM", stream, group, err)
	}

	entries := make([]queue.Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, toEntry(msg, retries[msg.ID]+1))
	}

	if len(entries) > 0 {
		t.log.Info("Reclaimed idle entries",
			zap.String("stream", stream),
			zap.String("group", group),
			zap.String("consumer", consumer),
			zap.Int("count", len(entries)))
	}
	return entries, nil
}

func (t *Transport) Ack(ctx context.Context, stream, group, id string) error {
	if err := t.client.XAck(ctx, stream, group, id).Err(); err != nil {
		return wrapGroupErr("XACK", stream, group, err)
	}
	return nil
}

// Ping checks if the Redis connection is alive
func (t *Transport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (t *Transport) Close() error {
	return t.client.Close()
}

func toEntry(msg redis.XMessage, deliveries int64) queue.Entry {
	entry := queue.Entry{ID: msg.ID, Deliveries: deliveries}
	if v, ok := msg.Values[fieldEvent].(string); ok {
		entry.Event = v
	}
	if v, ok := msg.Values[fieldPayload].(string); ok {
		entry.Payload = []byte(v)
	}
	return entry
}

func wrapGroupErr(op, stream, group string, err error) error {
	if strings.HasPrefix(err.Error(), "NOGROUP") {
		return fmt.Errorf("%s %s %s: %w", op, stream, group, queue.ErrNoGroup)
	}
	return fmt.Errorf("%s %s %s: %w", op, stream, group, err)
}
