package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// DeadLetterStreamSuffix is appended to a stream name to form its dead-letter stream
const DeadLetterStreamSuffix = ":dead"

// StreamDeadLetterSink writes dead letters to a sibling stream on the same
// transport, so "stream:receipts" dead letters land in "stream:receipts:dead".
type StreamDeadLetterSink struct {
	publisher Publisher
}

func NewStreamDeadLetterSink(publisher Publisher) *StreamDeadLetterSink {
	return &StreamDeadLetterSink{publisher: publisher}
}

func (s *StreamDeadLetterSink) SendDeadLetter(ctx context.Context, letter DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if _, err := s.publisher.Append(ctx, letter.Stream+DeadLetterStreamSuffix, letter.Event, body); err != nil {
		return fmt.Errorf("failed to append dead letter: %w", err)
	}
	return nil
}
