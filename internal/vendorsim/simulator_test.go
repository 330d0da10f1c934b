package vendorsim

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
)

type recordingReceipts struct {
	mu       sync.Mutex
	receipts []*dto.DeliveryReceiptRequest
	err      error
}

func (r *recordingReceipts) SubmitReceipt(_ context.Context, req *dto.DeliveryReceiptRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, req)
	return "1-0", r.err
}

func (r *recordingReceipts) all() []*dto.DeliveryReceiptRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*dto.DeliveryReceiptRequest(nil), r.receipts...)
}

func newTestSimulator(receipts service.ReceiptServicer, failureRate float64) *Simulator {
	s := NewSimulator(receipts, config.Vendor{
		MinDelay:    time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		FailureRate: failureRate,
	}, zap.NewNop())
	s.rng = rand.New(rand.NewSource(1))
	return s
}

func sendRequest() *dto.VendorSendRequest {
	return &dto.VendorSendRequest{
		CampaignID: uuid.NewString(),
		CustomerID: uuid.NewString(),
		Message:    "Hi Asha, welcome back",
	}
}

func TestSimulator_SendReportsReceiptLater(t *testing.T) {
	receipts := &recordingReceipts{}
	s := newTestSimulator(receipts, 0)
	req := sendRequest()

	resp, err := s.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Regexp(t, regexp.MustCompile(`^\d+-\d{1,6}$`), resp.VendorMessageID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	got := receipts.all()
	require.Len(t, got, 1)
	assert.Equal(t, req.CampaignID, got[0].CampaignID)
	assert.Equal(t, req.CustomerID, got[0].CustomerID)
	assert.Equal(t, resp.VendorMessageID, got[0].VendorMessageID)
	assert.Equal(t, "SENT", got[0].Status)

	var m meta
	require.NoError(t, json.Unmarshal(got[0].VendorMeta, &m))
	assert.Equal(t, "simulator", m.Provider)
	assert.GreaterOrEqual(t, m.LatencyMs, int64(1))
	assert.LessOrEqual(t, m.LatencyMs, int64(5))
}

func TestSimulator_FailureRate(t *testing.T) {
	receipts := &recordingReceipts{}
	s := newTestSimulator(receipts, 1)

	for i := 0; i < 5; i++ {
		_, err := s.Send(context.Background(), sendRequest())
		require.NoError(t, err)
	}
	require.NoError(t, s.Shutdown(context.Background()))

	got := receipts.all()
	require.Len(t, got, 5)
	for _, r := range got {
		assert.Equal(t, "FAILED", r.Status)
	}
}

func TestSimulator_RejectsInvalidRequest(t *testing.T) {
	s := newTestSimulator(&recordingReceipts{}, 0)

	_, err := s.Send(context.Background(), &dto.VendorSendRequest{CampaignID: "nope"})

	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems, "campaign_id must be a valid UUID")
	assert.Contains(t, verr.Problems, "customer_id is required")
}

func TestSimulator_RejectsAfterShutdown(t *testing.T) {
	s := newTestSimulator(&recordingReceipts{}, 0)
	require.NoError(t, s.Shutdown(context.Background()))

	_, err := s.Send(context.Background(), sendRequest())
	assert.Error(t, err)
}

func TestSimulator_CallbackErrorIsLogged(t *testing.T) {
	receipts := &recordingReceipts{err: errors.New("stream unavailable")}
	s := newTestSimulator(receipts, 0)

	_, err := s.Send(context.Background(), sendRequest())
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Len(t, receipts.all(), 1)
}
