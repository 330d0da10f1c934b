package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// decodeEntry checks the entry's event name and unmarshals its JSON payload
func decodeEntry[T any](entry queue.Entry, event string) (*T, error) {
	if entry.Event != event {
		return nil, fmt.Errorf("unexpected event %q, want %q", entry.Event, event)
	}

	var payload T
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", event, err)
	}
	return &payload, nil
}
