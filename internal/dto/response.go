package dto

import (
	"time"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// QueuedResponse acknowledges an entity accepted for asynchronous creation
type QueuedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PageMeta describes one page of a listing
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ListCustomersResponse represents one page of customers
type ListCustomersResponse struct {
	Data []*domain.Customer `json:"data"`
	Meta PageMeta           `json:"meta"`
}

// SegmentResponse wraps a created segment
type SegmentResponse struct {
	Segment *domain.Segment `json:"segment"`
}

// PreviewSegmentResponse reports the audience size of a rule tree
type PreviewSegmentResponse struct {
	AudienceSize int64 `json:"audience_size"`
}

// CampaignResponse wraps a created campaign
type CampaignResponse struct {
	Campaign *domain.Campaign `json:"campaign"`
}

// CampaignWithStats is a campaign together with its delivery counts
type CampaignWithStats struct {
	*domain.Campaign
	Stats domain.CampaignStats `json:"stats"`
}

// SendCampaignResponse reports the outcome of a send
type SendCampaignResponse struct {
	CampaignID   string `json:"campaign_id"`
	AudienceSize int64  `json:"audience_size"`
	Enqueued     int    `json:"enqueued"`
}

// DeliveryMetricsGroup represents archived receipts of one group
type DeliveryMetricsGroup struct {
	GroupValue string `json:"group_value"`
	TotalCount uint64 `json:"total_count"`
}

// DeliveryMetricsResponse represents archived delivery metrics of a campaign
type DeliveryMetricsResponse struct {
	CampaignID  string                 `json:"campaign_id"`
	From        time.Time              `json:"from"`
	To          time.Time              `json:"to"`
	TotalCount  uint64                 `json:"total_count"`
	SentCount   uint64                 `json:"sent_count"`
	FailedCount uint64                 `json:"failed_count"`
	GroupBy     string                 `json:"group_by,omitempty"`
	Groups      []DeliveryMetricsGroup `json:"groups,omitempty"`
}

// VendorSendResponse is the synchronous vendor acknowledgement
type VendorSendResponse struct {
	Accepted        bool   `json:"accepted"`
	VendorMessageID string `json:"vendor_message_id"`
}
