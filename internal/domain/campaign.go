package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignCreated CampaignStatus = "CREATED"
	CampaignSending CampaignStatus = "SENDING"
	CampaignDone    CampaignStatus = "DONE"
)

// Campaign is a message broadcast to a segment's audience
type Campaign struct {
	ID        uuid.UUID      `json:"id"`
	SegmentID uuid.UUID      `json:"segment_id"`
	Message   string         `json:"message"`
	Status    CampaignStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CampaignStats aggregates communication log outcomes for one campaign
type CampaignStats struct {
	Audience int64 `json:"audience"`
	Sent     int64 `json:"sent"`
	Failed   int64 `json:"failed"`
	Queued   int64 `json:"queued"`
}
