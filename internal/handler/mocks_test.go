package handler

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
)

// MockIngestService is a mock implementation of service.IngestServicer
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) SubmitCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockIngestService) SubmitOrder(ctx context.Context, req *dto.CreateOrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockIngestService) ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListCustomersResponse), args.Error(1)
}

// MockSegmentService is a mock implementation of service.SegmentServicer
type MockSegmentService struct {
	mock.Mock
}

func (m *MockSegmentService) CreateSegment(ctx context.Context, req *dto.CreateSegmentRequest) (*domain.Segment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Segment), args.Error(1)
}

func (m *MockSegmentService) PreviewSegment(ctx context.Context, req *dto.PreviewSegmentRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSegmentService) ListSegments(ctx context.Context) ([]*domain.Segment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Segment), args.Error(1)
}

// MockCampaignService is a mock implementation of service.CampaignServicer
type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*domain.Campaign, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaignService) ListCampaigns(ctx context.Context) ([]dto.CampaignWithStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.CampaignWithStats), args.Error(1)
}

func (m *MockCampaignService) SendCampaign(ctx context.Context, campaignID string) (*dto.SendCampaignResponse, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SendCampaignResponse), args.Error(1)
}

func (m *MockCampaignService) DeliveryMetrics(ctx context.Context, campaignID string, req *dto.DeliveryMetricsRequest) (*dto.DeliveryMetricsResponse, error) {
	args := m.Called(ctx, campaignID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DeliveryMetricsResponse), args.Error(1)
}

// MockReceiptService is a mock implementation of service.ReceiptServicer
type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) SubmitReceipt(ctx context.Context, req *dto.DeliveryReceiptRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockVendorService is a mock implementation of service.VendorServicer
type MockVendorService struct {
	mock.Mock
}

func (m *MockVendorService) Send(ctx context.Context, req *dto.VendorSendRequest) (*dto.VendorSendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VendorSendResponse), args.Error(1)
}

type testMocks struct {
	ingest    *MockIngestService
	segments  *MockSegmentService
	campaigns *MockCampaignService
	receipts  *MockReceiptService
	vendor    *MockVendorService
}

func newTestHandler() (*Handler, *testMocks) {
	m := &testMocks{
		ingest:    new(MockIngestService),
		segments:  new(MockSegmentService),
		campaigns: new(MockCampaignService),
		receipts:  new(MockReceiptService),
		vendor:    new(MockVendorService),
	}
	h := NewHandler(Services{
		Ingest:    m.ingest,
		Segments:  m.segments,
		Campaigns: m.campaigns,
		Receipts:  m.receipts,
		Vendor:    m.vendor,
	}, zap.NewNop())
	return h, m
}
