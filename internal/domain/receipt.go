package domain

import "time"

// DeliveryReceipt is an archived vendor outcome stored in ClickHouse
type DeliveryReceipt struct {
	CampaignID      string    `ch:"campaign_id"`
	CustomerID      string    `ch:"customer_id"`
	VendorMessageID string    `ch:"vendor_message_id"`
	Status          string    `ch:"status"`
	VendorMeta      string    `ch:"vendor_meta"`
	ReceivedAt      time.Time `ch:"received_at"`
	Version         uint64    `ch:"version"`
}
