package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
)

// PublishJSON marshals v and appends it to the stream under the event name
func PublishJSON(ctx context.Context, p Publisher, stream, event string, v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	id, err := p.Append(ctx, stream, event, payload)
	if err != nil {
		return "", fmt.Errorf("failed to append %s to %s: %w", event, stream, err)
	}

	metrics.Get().EntriesPublished.WithLabelValues(stream, event).Inc()
	return id, nil
}
