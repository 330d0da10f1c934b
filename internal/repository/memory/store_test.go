package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

func TestStore_CreateCustomerDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := &domain.Customer{ID: uuid.New(), Name: "Asha", Email: "asha@example.com"}

	require.NoError(t, s.CreateCustomer(ctx, c))
	err := s.CreateCustomer(ctx, &domain.Customer{ID: c.ID, Name: "Asha", Email: "asha@example.com"})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_CreateOrderRequiresCustomer(t *testing.T) {
	err := New().CreateOrder(context.Background(), &domain.Order{ID: uuid.New(), CustomerID: uuid.New(), Amount: decimal.NewFromInt(10)})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ApplyOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := &domain.Customer{ID: uuid.New(), Name: "Asha", TotalSpend: 100}
	require.NoError(t, s.CreateCustomer(ctx, c))
	later := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-24 * time.Hour)

	require.NoError(t, s.ApplyOrder(ctx, c.ID, 50, later))
	require.NoError(t, s.ApplyOrder(ctx, c.ID, 25, earlier))

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 175.0, got.TotalSpend)
	require.NotNil(t, got.LastOrderAt)
	assert.True(t, got.LastOrderAt.Equal(later))
}

func TestStore_ListCustomersPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateCustomer(ctx, &domain.Customer{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	page, total, err := s.ListCustomersPage(ctx, 2, 2)

	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	page, _, err = s.ListCustomersPage(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_TransitionCampaign(t *testing.T) {
	ctx := context.Background()
	s := New()
	seg := &domain.Segment{ID: uuid.New(), Name: "all"}
	require.NoError(t, s.CreateSegment(ctx, seg))
	c := &domain.Campaign{ID: uuid.New(), SegmentID: seg.ID, Status: domain.CampaignCreated}
	require.NoError(t, s.CreateCampaign(ctx, c))

	changed, err := s.TransitionCampaign(ctx, c.ID, []domain.CampaignStatus{domain.CampaignSending}, domain.CampaignDone)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.TransitionCampaign(ctx, c.ID, []domain.CampaignStatus{domain.CampaignCreated, domain.CampaignSending}, domain.CampaignSending)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignSending, got.Status)
}

func TestStore_CreateLogsSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := New()
	campaignID, a, b := uuid.New(), uuid.New(), uuid.New()

	n, err := s.CreateLogs(ctx, []*domain.CommunicationLog{{CampaignID: campaignID, CustomerID: a, Status: domain.DeliveryQueued}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CreateLogs(ctx, []*domain.CommunicationLog{
		{CampaignID: campaignID, CustomerID: a, Status: domain.DeliveryQueued},
		{CampaignID: campaignID, CustomerID: b, Status: domain.DeliveryQueued},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := s.CampaignStats(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStats{Audience: 2, Queued: 2}, stats)
}

func TestStore_BulkUpdateLogStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	campaignID, a, b := uuid.New(), uuid.New(), uuid.New()
	_, err := s.CreateLogs(ctx, []*domain.CommunicationLog{
		{CampaignID: campaignID, CustomerID: a, Status: domain.DeliveryQueued},
		{CampaignID: campaignID, CustomerID: b, Status: domain.DeliveryQueued},
	})
	require.NoError(t, err)
	s.FailUpdate = func(u domain.LogStatusUpdate) error {
		if u.CustomerID == b {
			return errors.New("boom")
		}
		return nil
	}

	res, err := s.BulkUpdateLogStatus(ctx, []domain.LogStatusUpdate{
		{CampaignID: campaignID, CustomerID: b, Status: domain.DeliverySent},
		{CampaignID: campaignID, CustomerID: a, Status: domain.DeliveryFailed, VendorMessageID: "v-1"},
		{CampaignID: campaignID, CustomerID: a, Status: domain.DeliverySent, VendorMessageID: "v-2"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Matched)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 0, res.Errors[0].Index)

	got, ok := s.GetLog(campaignID, a)
	require.True(t, ok)
	assert.Equal(t, domain.DeliverySent, got.Status)
	assert.Equal(t, "v-2", *got.VendorMessageID)

	queued, err := s.CountLogs(ctx, campaignID, domain.DeliveryQueued)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
}
