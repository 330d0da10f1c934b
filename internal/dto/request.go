package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

// CreateCustomerRequest represents a customer ingestion request
type CreateCustomerRequest struct {
	Name         string     `json:"name" validate:"required,min=2"`
	Email        string     `json:"email" validate:"required,email"`
	Phone        string     `json:"phone" validate:"omitempty,max=32"`
	TotalSpend   float64    `json:"total_spend" validate:"min=0"`
	Visits       int64      `json:"visits" validate:"min=0"`
	LastOrderAt  *time.Time `json:"last_order_at"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

// CreateOrderRequest represents an order ingestion request
type CreateOrderRequest struct {
	CustomerID string          `json:"customer_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

// ListCustomersRequest represents a customer listing query
type ListCustomersRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// CreateSegmentRequest represents a segment creation request
type CreateSegmentRequest struct {
	Name  string       `json:"name" validate:"required"`
	Rules *domain.Rule `json:"rules" validate:"required"`
}

// PreviewSegmentRequest represents an audience size preview request
type PreviewSegmentRequest struct {
	Rules *domain.Rule `json:"rules" validate:"required"`
}

// CreateCampaignRequest represents a campaign creation request
type CreateCampaignRequest struct {
	SegmentID string `json:"segment_id" validate:"required,uuid"`
	Message   string `json:"message" validate:"required"`
}

// DeliveryMetricsRequest represents an archived delivery metrics query
type DeliveryMetricsRequest struct {
	From    time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To      time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	GroupBy string    `form:"group_by" validate:"omitempty,oneof=status hour day"`
}

// VendorSendRequest represents a message handed to the vendor
type VendorSendRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,uuid"`
	CustomerID string `json:"customer_id" validate:"required,uuid"`
	Message    string `json:"message" validate:"required"`
}

// DeliveryReceiptRequest represents a vendor delivery callback
type DeliveryReceiptRequest struct {
	CampaignID      string          `json:"campaign_id" validate:"required,uuid"`
	CustomerID      string          `json:"customer_id" validate:"required,uuid"`
	VendorMessageID string          `json:"vendor_message_id" validate:"nonul"`
	Status          string          `json:"status" validate:"required,oneof=SENT FAILED"`
	VendorMeta      json.RawMessage `json:"vendor_meta,omitempty" validate:"omitempty,json,nonul"`
}
