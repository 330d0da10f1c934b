package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with an existing key
	ErrDuplicate = errors.New("duplicate record")
)

// CustomerRepository stores materialized customers
type CustomerRepository interface {
	// CreateCustomer inserts the customer with its pre-assigned id. It returns
	// ErrDuplicate if the id is taken.
	CreateCustomer(ctx context.Context, customer *domain.Customer) error

	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// ListCustomers returns every customer, used for segment evaluation
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// ListCustomersPage returns one page ordered by creation time, newest first,
	// together with the total number of customers
	ListCustomersPage(ctx context.Context, limit, offset int) ([]*domain.Customer, int64, error)

	// ApplyOrder adds amount to the customer's total spend and advances
	// last_order_at to at when it is later
	ApplyOrder(ctx context.Context, customerID uuid.UUID, amount float64, at time.Time) error
}

// OrderRepository stores materialized orders
type OrderRepository interface {
	// CreateOrder inserts the order with its pre-assigned id. It returns
	// ErrDuplicate on a repeated id and ErrNotFound if the customer is unknown.
	CreateOrder(ctx context.Context, order *domain.Order) error
}

// SegmentRepository stores audience definitions
type SegmentRepository interface {
	CreateSegment(ctx context.Context, segment *domain.Segment) error
	GetSegment(ctx context.Context, id uuid.UUID) (*domain.Segment, error)
	ListSegments(ctx context.Context) ([]*domain.Segment, error)
}

// CampaignRepository stores campaigns and guards their status transitions
type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)

	// ListCampaigns returns campaigns newest first
	ListCampaigns(ctx context.Context) ([]*domain.Campaign, error)

	// TransitionCampaign sets the status to `to` only if the current status is
	// one of `from`. It reports whether the row changed.
	TransitionCampaign(ctx context.Context, id uuid.UUID, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error)
}

// CommunicationLogRepository stores per-customer delivery state of campaigns
type CommunicationLogRepository interface {
	// CreateLogs inserts QUEUED logs, skipping customers that already have a
	// log for the campaign. It returns the number of rows inserted.
	CreateLogs(ctx context.Context, logs []*domain.CommunicationLog) (int, error)

	// QueuedCustomerIDs returns customers of the campaign whose log is still QUEUED
	QueuedCustomerIDs(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error)

	// BulkUpdateLogStatus applies every update independently, last write wins.
	// Per-update failures are reported in the result rather than aborting the
	// rest; a returned error means the whole write failed.
	BulkUpdateLogStatus(ctx context.Context, updates []domain.LogStatusUpdate) (domain.BulkWriteResult, error)

	CountLogs(ctx context.Context, campaignID uuid.UUID, status domain.DeliveryStatus) (int64, error)

	CampaignStats(ctx context.Context, campaignID uuid.UUID) (domain.CampaignStats, error)
}

// Store is the primary document store
type Store interface {
	CustomerRepository
	OrderRepository
	SegmentRepository
	CampaignRepository
	CommunicationLogRepository

	// InitSchema creates tables if they don't exist
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}

// DeliveryMetricsQuery selects archived receipts of a campaign
type DeliveryMetricsQuery struct {
	CampaignID string
	From       time.Time
	To         time.Time
	GroupBy    string
}

// DeliveryMetricsGroup is the receipt count of one group
type DeliveryMetricsGroup struct {
	GroupValue string
	TotalCount uint64
}

// DeliveryMetricsResult summarizes archived receipts
type DeliveryMetricsResult struct {
	TotalCount  uint64
	SentCount   uint64
	FailedCount uint64
	Groups      []DeliveryMetricsGroup
}

// ReceiptArchive is the append-only analytics store of delivery receipts
type ReceiptArchive interface {
	// InsertBatch inserts a batch of receipts
	InsertBatch(ctx context.Context, receipts []*domain.DeliveryReceipt) (int, error)

	// InitSchema initializes the archive schema
	InitSchema(ctx context.Context) error

	// GetDeliveryMetrics aggregates receipts based on the query
	GetDeliveryMetrics(ctx context.Context, query DeliveryMetricsQuery) (*DeliveryMetricsResult, error)

	Ping(ctx context.Context) error

	Close() error
}
