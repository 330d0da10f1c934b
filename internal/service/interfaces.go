package service

import (
	"context"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
)

// IngestServicer accepts customers and orders for asynchronous materialization
type IngestServicer interface {
	SubmitCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (string, error)
	SubmitOrder(ctx context.Context, req *dto.CreateOrderRequest) (string, error)
	ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error)
}

// SegmentServicer defines the interface for segment operations
type SegmentServicer interface {
	CreateSegment(ctx context.Context, req *dto.CreateSegmentRequest) (*domain.Segment, error)
	PreviewSegment(ctx context.Context, req *dto.PreviewSegmentRequest) (int64, error)
	ListSegments(ctx context.Context) ([]*domain.Segment, error)
}

// CampaignServicer defines the interface for campaign operations
type CampaignServicer interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]dto.CampaignWithStats, error)
	SendCampaign(ctx context.Context, campaignID string) (*dto.SendCampaignResponse, error)
	DeliveryMetrics(ctx context.Context, campaignID string, req *dto.DeliveryMetricsRequest) (*dto.DeliveryMetricsResponse, error)
}

// ReceiptServicer queues vendor delivery receipts
type ReceiptServicer interface {
	SubmitReceipt(ctx context.Context, req *dto.DeliveryReceiptRequest) (string, error)
}

// VendorServicer hands a message to the delivery vendor
type VendorServicer interface {
	Send(ctx context.Context, req *dto.VendorSendRequest) (*dto.VendorSendResponse, error)
}
