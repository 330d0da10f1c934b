package consumer

import (
	"context"

	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// Envelope wraps a stream entry with acknowledgment callbacks
type Envelope struct {
	Entry  queue.Entry
	Stream string
	Group  string

	ack     func(context.Context) error
	fail    func(context.Context, error) error
	settled bool
}

// NewEnvelope creates a new entry envelope
func NewEnvelope(entry queue.Entry, stream, group string, ack func(context.Context) error, fail func(context.Context, error) error) *Envelope {
	return &Envelope{
		Entry:  entry,
		Stream: stream,
		Group:  group,
		ack:    ack,
		fail:   fail,
	}
}

// Ack acknowledges successful processing. Only the first Ack or Fail of an
// envelope has an effect.
func (e *Envelope) Ack(ctx context.Context) error {
	if e.settled {
		return nil
	}
	e.settled = true
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Fail reports a processing failure. The entry stays pending for redelivery
// unless it has used up its deliveries, in which case it is dead-lettered.
func (e *Envelope) Fail(ctx context.Context, cause error) error {
	if e.settled {
		return nil
	}
	e.settled = true
	if e.fail != nil {
		return e.fail(ctx, cause)
	}
	return nil
}

// Settled reports whether Ack or Fail was called
func (e *Envelope) Settled() bool {
	return e.settled
}
