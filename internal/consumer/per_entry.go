package consumer

import (
	"context"

	"go.uber.org/zap"
)

type perEntry struct {
	handler EntryHandler
	log     *zap.Logger
}

// PerEntry adapts an EntryHandler to a BatchHandler that processes entries one
// at a time. A failing entry is failed on its own and does not stop the rest.
func PerEntry(handler EntryHandler, log *zap.Logger) BatchHandler {
	return &perEntry{handler: handler, log: log}
}

func (p *perEntry) HandleBatch(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := p.handler.Handle(ctx, env); err != nil {
			if failErr := env.Fail(ctx, err); failErr != nil {
				p.log.Error("Failed to fail entry", zap.String("entry_id", env.Entry.ID), zap.Error(failErr))
			}
			continue
		}
		if err := env.Ack(ctx); err != nil {
			p.log.Error("Failed to ack entry", zap.String("entry_id", env.Entry.ID), zap.Error(err))
		}
	}
}
