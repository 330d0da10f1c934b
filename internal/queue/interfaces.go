package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNoGroup is returned by ReadBatch when the consumer group does not exist
var ErrNoGroup = errors.New("consumer group does not exist")

// Entry is one record read from a stream by a consumer group
type Entry struct {
	ID      string
	Event   string
	Payload []byte
	// Deliveries counts how many times the entry has been handed to the group,
	// including this one.
	Deliveries int64
}

// Transport is a durable append-only log with consumer groups and explicit
// acknowledgement. Entries read but not acked stay pending and are handed out
// again once they have been idle long enough.
type Transport interface {
	// Append adds an entry to the end of the stream and returns its id
	Append(ctx context.Context, stream, event string, payload []byte) (string, error)

	// EnsureGroup creates the consumer group if it is missing. It is idempotent.
	EnsureGroup(ctx context.Context, stream, group string) error

	// ReadBatch returns up to count entries for the consumer, waiting up to block
	// for new ones. Reclaimed idle entries are returned before new ones.
	ReadBatch(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Entry, error)

	// Ack removes the entry from the group's pending list
	Ack(ctx context.Context, stream, group, id string) error
}

// Publisher is the append-only half of Transport used by producers
type Publisher interface {
	Append(ctx context.Context, stream, event string, payload []byte) (string, error)
}

// DeadLetter is an entry that exhausted its delivery attempts
type DeadLetter struct {
	Stream     string `json:"stream"`
	Group      string `json:"group"`
	EntryID    string `json:"entry_id"`
	Event      string `json:"event"`
	Payload    string `json:"payload"`
	Deliveries int64  `json:"deliveries"`
	Reason     string `json:"reason"`
	FailedAt   int64  `json:"failed_at"`
}

// DeadLetterSink stores entries that will not be retried
type DeadLetterSink interface {
	SendDeadLetter(ctx context.Context, letter DeadLetter) error
}
