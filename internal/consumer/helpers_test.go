package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

const (
	testStream = "stream:test"
	testGroup  = "cgTest"
)

// settlement records how a test envelope was settled
type settlement struct {
	acked  bool
	failed bool
	cause  error
}

func newTestEnvelope(entry queue.Entry) (*Envelope, *settlement) {
	s := &settlement{}
	env := NewEnvelope(entry, testStream, testGroup,
		func(context.Context) error {
			s.acked = true
			return nil
		},
		func(_ context.Context, cause error) error {
			s.failed = true
			s.cause = cause
			return nil
		},
	)
	return env, s
}

func jsonEntry(t *testing.T, id, event string, v any) queue.Entry {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return queue.Entry{ID: id, Event: event, Payload: payload, Deliveries: 1}
}

var errBoom = errors.New("boom")

// MockDeadLetterSink is a mock implementation of queue.DeadLetterSink
type MockDeadLetterSink struct {
	mock.Mock
}

func (m *MockDeadLetterSink) SendDeadLetter(ctx context.Context, letter queue.DeadLetter) error {
	return m.Called(ctx, letter).Error(0)
}

// MockVendor is a mock implementation of service.VendorServicer
type MockVendor struct {
	mock.Mock
}

func (m *MockVendor) Send(ctx context.Context, req *dto.VendorSendRequest) (*dto.VendorSendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VendorSendResponse), args.Error(1)
}
