package consumer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/memory"
)

// MockReceiptArchive is a mock implementation of repository.ReceiptArchive
type MockReceiptArchive struct {
	mock.Mock
}

func (m *MockReceiptArchive) InsertBatch(ctx context.Context, receipts []*domain.DeliveryReceipt) (int, error) {
	args := m.Called(ctx, receipts)
	return args.Int(0), args.Error(1)
}

func (m *MockReceiptArchive) InitSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockReceiptArchive) GetDeliveryMetrics(ctx context.Context, query repository.DeliveryMetricsQuery) (*repository.DeliveryMetricsResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DeliveryMetricsResult), args.Error(1)
}

func (m *MockReceiptArchive) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockReceiptArchive) Close() error {
	return m.Called().Error(0)
}

// sendingCampaign seeds a SENDING campaign with one QUEUED log per customer
func sendingCampaign(t *testing.T, store *memory.Store, audience int) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	segment := &domain.Segment{ID: uuid.New(), Name: "everyone"}
	require.NoError(t, store.CreateSegment(ctx, segment))

	campaign := &domain.Campaign{ID: uuid.New(), SegmentID: segment.ID, Message: "hello", Status: domain.CampaignSending}
	require.NoError(t, store.CreateCampaign(ctx, campaign))

	customers := make([]uuid.UUID, audience)
	logs := make([]*domain.CommunicationLog, audience)
	for i := range customers {
		customers[i] = uuid.New()
		logs[i] = &domain.CommunicationLog{
			CampaignID: campaign.ID,
			CustomerID: customers[i],
			Status:     domain.DeliveryQueued,
			Message:    "Hi there, hello",
		}
	}
	n, err := store.CreateLogs(ctx, logs)
	require.NoError(t, err)
	require.Equal(t, audience, n)

	return campaign.ID, customers
}

func receiptEnvelope(t *testing.T, seq int, campaignID, customerID uuid.UUID, status domain.DeliveryStatus) (*Envelope, *settlement) {
	t.Helper()
	return newTestEnvelope(jsonEntry(t, fmt.Sprintf("1-%d", seq), dto.EventDeliveryReceipt, dto.DeliveryReceiptEvent{
		CampaignID:      campaignID.String(),
		CustomerID:      customerID.String(),
		VendorMessageID: fmt.Sprintf("vm-%d", seq),
		Status:          string(status),
		VendorMeta:      []byte(`{"provider":"simulator","latency_ms":120}`),
		ReceivedAt:      time.Date(2024, 5, 1, 10, 0, seq, 0, time.UTC),
	}))
}

func campaignStatus(t *testing.T, store *memory.Store, id uuid.UUID) domain.CampaignStatus {
	t.Helper()
	c, err := store.GetCampaign(context.Background(), id)
	require.NoError(t, err)
	return c.Status
}

func TestReceiptAggregator_CompletesCampaign(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 3)
	agg := NewReceiptAggregator(store, nil, zap.NewNop())

	statuses := []domain.DeliveryStatus{domain.DeliverySent, domain.DeliveryFailed, domain.DeliverySent}

	// first two receipts leave one log queued
	var envs []*Envelope
	var settled []*settlement
	for i := 0; i < 2; i++ {
		env, s := receiptEnvelope(t, i, campaignID, customers[i], statuses[i])
		envs, settled = append(envs, env), append(settled, s)
	}
	agg.HandleBatch(context.Background(), envs)

	for _, s := range settled {
		assert.True(t, s.acked)
	}
	assert.Equal(t, domain.CampaignSending, campaignStatus(t, store, campaignID))

	env, s := receiptEnvelope(t, 2, campaignID, customers[2], statuses[2])
	agg.HandleBatch(context.Background(), []*Envelope{env})

	assert.True(t, s.acked)
	assert.Equal(t, domain.CampaignDone, campaignStatus(t, store, campaignID))

	stats, err := store.CampaignStats(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStats{Audience: 3, Sent: 2, Failed: 1, Queued: 0}, stats)
}

func TestReceiptAggregator_LastProcessedWins(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 1)
	agg := NewReceiptAggregator(store, nil, zap.NewNop())

	// the later-timestamped receipt is processed first
	later, _ := receiptEnvelope(t, 9, campaignID, customers[0], domain.DeliverySent)
	earlier, _ := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliveryFailed)

	agg.HandleBatch(context.Background(), []*Envelope{later, earlier})

	log, ok := store.GetLog(campaignID, customers[0])
	require.True(t, ok)
	assert.Equal(t, domain.DeliveryFailed, log.Status)
	require.NotNil(t, log.VendorMessageID)
	assert.Equal(t, "vm-1", *log.VendorMessageID)
}

func TestReceiptAggregator_RedeliveryIsSafe(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 1)
	agg := NewReceiptAggregator(store, nil, zap.NewNop())

	first, _ := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliverySent)
	agg.HandleBatch(context.Background(), []*Envelope{first})
	before, ok := store.GetLog(campaignID, customers[0])
	require.True(t, ok)

	again, s := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliverySent)
	agg.HandleBatch(context.Background(), []*Envelope{again})
	after, ok := store.GetLog(campaignID, customers[0])
	require.True(t, ok)

	assert.True(t, s.acked)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, *before.VendorMessageID, *after.VendorMessageID)
	assert.JSONEq(t, string(before.VendorMeta), string(after.VendorMeta))
	assert.Equal(t, domain.CampaignDone, campaignStatus(t, store, campaignID))
}

func TestReceiptAggregator_DoneIsNeverReverted(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 1)
	_, err := store.TransitionCampaign(context.Background(), campaignID,
		[]domain.CampaignStatus{domain.CampaignSending}, domain.CampaignDone)
	require.NoError(t, err)

	agg := NewReceiptAggregator(store, nil, zap.NewNop())
	env, s := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliveryFailed)
	agg.HandleBatch(context.Background(), []*Envelope{env})

	assert.True(t, s.acked)
	assert.Equal(t, domain.CampaignDone, campaignStatus(t, store, campaignID))
}

func TestReceiptAggregator_FailedUpdateStaysPending(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 2)
	store.FailUpdate = func(u domain.LogStatusUpdate) error {
		if u.CustomerID == customers[1] {
			return errBoom
		}
		return nil
	}
	agg := NewReceiptAggregator(store, nil, zap.NewNop())

	ok, okSettled := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliverySent)
	bad, badSettled := receiptEnvelope(t, 2, campaignID, customers[1], domain.DeliverySent)
	agg.HandleBatch(context.Background(), []*Envelope{ok, bad})

	assert.True(t, okSettled.acked)
	assert.True(t, badSettled.failed)
	assert.ErrorIs(t, badSettled.cause, errBoom)
	assert.Equal(t, domain.CampaignSending, campaignStatus(t, store, campaignID))

	// the redelivered receipt completes the campaign once the store recovers
	store.FailUpdate = nil
	retry, retrySettled := receiptEnvelope(t, 2, campaignID, customers[1], domain.DeliverySent)
	agg.HandleBatch(context.Background(), []*Envelope{retry})

	assert.True(t, retrySettled.acked)
	assert.Equal(t, domain.CampaignDone, campaignStatus(t, store, campaignID))
}

func TestReceiptAggregator_RejectsMalformedReceipts(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 1)
	agg := NewReceiptAggregator(store, nil, zap.NewNop())

	badStatus, badStatusSettled := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliveryQueued)
	badJSON, badJSONSettled := newTestEnvelope(jsonEntry(t, "1-2", dto.EventDeliveryReceipt, "not an object"))

	agg.HandleBatch(context.Background(), []*Envelope{badStatus, badJSON})

	assert.True(t, badStatusSettled.failed)
	assert.True(t, badJSONSettled.failed)

	log, ok := store.GetLog(campaignID, customers[0])
	require.True(t, ok)
	assert.Equal(t, domain.DeliveryQueued, log.Status)
}

func TestReceiptAggregator_ArchivesAppliedReceipts(t *testing.T) {
	store := memory.New()
	campaignID, customers := sendingCampaign(t, store, 2)

	archive := new(MockReceiptArchive)
	archive.On("InsertBatch", mock.Anything, mock.MatchedBy(func(receipts []*domain.DeliveryReceipt) bool {
		return len(receipts) == 2 &&
			receipts[0].CampaignID == campaignID.String() &&
			receipts[0].Status == "SENT" &&
			receipts[0].Version == uint64(receipts[0].ReceivedAt.UnixNano())
	})).Return(0, errBoom)

	agg := NewReceiptAggregator(store, archive, zap.NewNop())
	first, firstSettled := receiptEnvelope(t, 1, campaignID, customers[0], domain.DeliverySent)
	second, secondSettled := receiptEnvelope(t, 2, campaignID, customers[1], domain.DeliveryFailed)

	agg.HandleBatch(context.Background(), []*Envelope{first, second})

	// archive failures do not hold back the acks
	assert.True(t, firstSettled.acked)
	assert.True(t, secondSettled.acked)
	archive.AssertExpectations(t)
}
