package consumer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// Receiver reads batches for one consumer of a group, backing off on errors
type Receiver struct {
	transport queue.Transport
	opts      Options
	log       *zap.Logger
}

// NewReceiver creates a new stream receiver
func NewReceiver(transport queue.Transport, opts Options, log *zap.Logger) *Receiver {
	return &Receiver{
		transport: transport,
		opts:      opts,
		log:       log,
	}
}

// EnsureGroup creates the consumer group, retrying until it succeeds or ctx ends
func (r *Receiver) EnsureGroup(ctx context.Context) error {
	for {
		err := r.transport.EnsureGroup(ctx, r.opts.Stream, r.opts.Group)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.log.Error("Failed to ensure consumer group",
			zap.String("stream", r.opts.Stream),
			zap.String("group", r.opts.Group),
			zap.Error(err))

		if err := sleep(ctx, r.opts.Backoff); err != nil {
			return err
		}
	}
}

// Receive returns the next batch, or nil when the read timed out or failed.
// Failures are logged and followed by the backoff sleep.
func (r *Receiver) Receive(ctx context.Context) []queue.Entry {
	entries, err := r.transport.ReadBatch(ctx, r.opts.Stream, r.opts.Group, r.opts.Consumer, r.opts.BatchSize, r.opts.BlockTimeout)
	if err == nil {
		return entries
	}
	if ctx.Err() != nil {
		return nil
	}

	if errors.Is(err, queue.ErrNoGroup) {
		r.log.Warn("Consumer group missing, recreating",
			zap.String("stream", r.opts.Stream),
			zap.String("group", r.opts.Group))
		_ = r.EnsureGroup(ctx)
		return nil
	}

	r.log.Error("Error reading from stream",
		zap.String("stream", r.opts.Stream),
		zap.String("group", r.opts.Group),
		zap.Error(err))
	_ = sleep(ctx, r.opts.Backoff)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
