package consumer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

const tracerName = "github.com/DhruvAgrawal511/xeno-backend/internal/consumer"

// Options configures one consumer loop
type Options struct {
	Stream        string
	Group         string
	Consumer      string
	BatchSize     int64
	BlockTimeout  time.Duration
	Backoff       time.Duration
	MaxDeliveries int64
}

func (o *Options) setDefaults() {
	if o.Consumer == "" {
		o.Consumer = "worker-1"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = 5 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 10
	}
}

// Consumer runs a polling loop over one stream for one consumer group
type Consumer struct {
	transport queue.Transport
	sink      queue.DeadLetterSink
	receiver  *Receiver
	handler   BatchHandler
	opts      Options
	tracer    trace.Tracer
	log       *zap.Logger
}

// NewConsumer creates a consumer loop. Entries failed after MaxDeliveries
// deliveries are written to sink and acked.
func NewConsumer(transport queue.Transport, sink queue.DeadLetterSink, opts Options, handler BatchHandler, log *zap.Logger) *Consumer {
	opts.setDefaults()
	log = log.With(zap.String("stream", opts.Stream), zap.String("group", opts.Group))

	return &Consumer{
		transport: transport,
		sink:      sink,
		receiver:  NewReceiver(transport, opts, log),
		handler:   handler,
		opts:      opts,
		tracer:    otel.Tracer(tracerName),
		log:       log,
	}
}

// Run ensures the group exists and processes batches until ctx is cancelled.
// A batch in flight when ctx is cancelled is finished first.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Consumer starting",
		zap.String("consumer", c.opts.Consumer),
		zap.Int64("batch_size", c.opts.BatchSize),
		zap.Int64("max_deliveries", c.opts.MaxDeliveries))

	if err := c.receiver.EnsureGroup(ctx); err != nil {
		c.log.Info("Consumer stopped before group was ready")
		return nil
	}

	for {
		if ctx.Err() != nil {
			c.log.Info("Consumer shutting down")
			return nil
		}

		entries := c.receiver.Receive(ctx)
		if len(entries) == 0 {
			continue
		}

		c.processBatch(context.WithoutCancel(ctx), entries)
	}
}

func (c *Consumer) processBatch(ctx context.Context, entries []queue.Entry) {
	ctx, span := c.tracer.Start(ctx, "consumer.batch", trace.WithAttributes(
		attribute.String("stream", c.opts.Stream),
		attribute.String("group", c.opts.Group),
		attribute.Int("batch_size", len(entries)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.Get().BatchDuration.WithLabelValues(c.opts.Stream).Observe(time.Since(start).Seconds())
	}()

	envelopes := make([]*Envelope, len(entries))
	for i, entry := range entries {
		envelopes[i] = c.envelope(entry)
	}

	c.handler.HandleBatch(ctx, envelopes)

	unsettled := 0
	for _, env := range envelopes {
		if !env.Settled() {
			unsettled++
		}
	}
	if unsettled > 0 {
		span.SetStatus(codes.Error, "entries left pending")
		c.log.Warn("Entries left pending", zap.Int("count", unsettled))
	}

	c.log.Debug("Batch processed",
		zap.Int("entry_count", len(entries)),
		zap.Duration("duration", time.Since(start)))
}

func (c *Consumer) envelope(entry queue.Entry) *Envelope {
	return NewEnvelope(entry, c.opts.Stream, c.opts.Group,
		func(ctx context.Context) error { return c.ack(ctx, entry, "acked") },
		func(ctx context.Context, cause error) error { return c.fail(ctx, entry, cause) },
	)
}

func (c *Consumer) ack(ctx context.Context, entry queue.Entry, outcome string) error {
	if err := c.transport.Ack(ctx, c.opts.Stream, c.opts.Group, entry.ID); err != nil {
		c.log.Error("Failed to ack entry", zap.String("entry_id", entry.ID), zap.Error(err))
		return fmt.Errorf("ack %s: %w", entry.ID, err)
	}
	metrics.Get().EntriesProcessed.WithLabelValues(c.opts.Stream, c.opts.Group, outcome).Inc()
	return nil
}

// fail leaves the entry pending, or dead-letters and acks it once it has
// reached MaxDeliveries. If the dead-letter write fails the entry stays pending.
func (c *Consumer) fail(ctx context.Context, entry queue.Entry, cause error) error {
	if entry.Deliveries < c.opts.MaxDeliveries || c.sink == nil {
		metrics.Get().EntriesProcessed.WithLabelValues(c.opts.Stream, c.opts.Group, "failed").Inc()
		c.log.Error("Entry failed, leaving pending",
			zap.String("entry_id", entry.ID),
			zap.String("event", entry.Event),
			zap.Int64("deliveries", entry.Deliveries),
			zap.Error(cause))
		return nil
	}

	letter := queue.DeadLetter{
		Stream:     c.opts.Stream,
		Group:      c.opts.Group,
		EntryID:    entry.ID,
		Event:      entry.Event,
		Payload:    string(entry.Payload),
		Deliveries: entry.Deliveries,
		Reason:     cause.Error(),
		FailedAt:   time.Now().UnixMilli(),
	}
	if err := c.sink.SendDeadLetter(ctx, letter); err != nil {
		c.log.Error("Failed to dead-letter entry, leaving pending",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return fmt.Errorf("dead-letter %s: %w", entry.ID, err)
	}

	metrics.Get().DeadLettered.WithLabelValues(c.opts.Stream, c.opts.Group).Inc()
	c.log.Warn("Entry dead-lettered",
		zap.String("entry_id", entry.ID),
		zap.String("event", entry.Event),
		zap.Int64("deliveries", entry.Deliveries),
		zap.Error(cause))

	return c.ack(ctx, entry, "dead_lettered")
}
