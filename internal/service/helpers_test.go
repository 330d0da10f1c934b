package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/memory"
)

func testStreams() config.Streams {
	return config.Streams{
		Customers:  "stream:customers",
		Orders:     "stream:orders",
		Deliveries: "stream:deliveries",
		Receipts:   "stream:receipts",
	}
}

// MockPublisher is a mock implementation of queue.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Append(ctx context.Context, stream, event string, payload []byte) (string, error) {
	args := m.Called(ctx, stream, event, payload)
	return args.String(0), args.Error(1)
}

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

func seedCustomer(t *testing.T, store *memory.Store, name string, spend float64) *domain.Customer {
	t.Helper()
	c := &domain.Customer{
		ID:         uuid.New(),
		Name:       name,
		Email:      name + "@example.com",
		TotalSpend: spend,
		CreatedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateCustomer(context.Background(), c))
	return c
}

func highSpenders() *domain.Rule {
	return &domain.Rule{
		Op: domain.OpAnd,
		Children: []*domain.Rule{
			{Field: "total_spend", Cmp: domain.CmpGt, Value: 1000.0},
		},
	}
}
