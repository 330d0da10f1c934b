package consumer

import (
	"context"
)

// BatchHandler processes one batch read from a stream. Every envelope it
// neither acks nor fails stays pending and is redelivered later.
type BatchHandler interface {
	HandleBatch(ctx context.Context, envelopes []*Envelope)
}

// EntryHandler processes a single entry. A nil error acks the entry.
type EntryHandler interface {
	Handle(ctx context.Context, env *Envelope) error
}

// EntryHandlerFunc adapts a function to EntryHandler
type EntryHandlerFunc func(ctx context.Context, env *Envelope) error

func (f EntryHandlerFunc) Handle(ctx context.Context, env *Envelope) error {
	return f(ctx, env)
}
