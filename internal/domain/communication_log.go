package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the delivery outcome of a communication log row
type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "QUEUED"
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// IsTerminal reports whether the status is a vendor outcome
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliverySent || s == DeliveryFailed
}

// CommunicationLog tracks the delivery of one campaign message to one customer
type CommunicationLog struct {
	ID              uuid.UUID       `json:"id"`
	CampaignID      uuid.UUID       `json:"campaign_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Status          DeliveryStatus  `json:"status"`
	VendorMessageID *string         `json:"vendor_message_id,omitempty"`
	VendorMeta      json.RawMessage `json:"vendor_meta,omitempty"`
	Message         string          `json:"message"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LogStatusUpdate is a keyed update of a communication log row, matched by
// (CampaignID, CustomerID)
type LogStatusUpdate struct {
	CampaignID      uuid.UUID
	CustomerID      uuid.UUID
	Status          DeliveryStatus
	VendorMessageID string
	VendorMeta      json.RawMessage
}

// BulkWriteError reports the failure of one update in an unordered bulk write
type BulkWriteError struct {
	Index int
	Err   error
}

// BulkWriteResult summarizes an unordered bulk write
type BulkWriteResult struct {
	Matched int64
	Errors  []BulkWriteError
}
