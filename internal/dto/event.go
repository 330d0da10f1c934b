package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event names carried in the stream entry's event field
const (
	EventCustomerCreated = "customer.created"
	EventOrderCreated    = "order.created"
	EventDeliverySend    = "deliver.send"
	EventDeliveryReceipt = "delivery.receipt"
)

// CustomerCreatedEvent is the payload of customer.created
type CustomerCreatedEvent struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	TotalSpend   float64    `json:"total_spend"`
	Visits       int64      `json:"visits"`
	LastOrderAt  *time.Time `json:"last_order_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// OrderCreatedEvent is the payload of order.created
type OrderCreatedEvent struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DeliverySendEvent is the payload of deliver.send
type DeliverySendEvent struct {
	CampaignID string `json:"campaign_id"`
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
}

// DeliveryReceiptEvent is the payload of delivery.receipt
type DeliveryReceiptEvent struct {
	CampaignID      string          `json:"campaign_id"`
	CustomerID      string          `json:"customer_id"`
	VendorMessageID string          `json:"vendor_message_id"`
	Status          string          `json:"status"`
	VendorMeta      json.RawMessage `json:"vendor_meta,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
}
