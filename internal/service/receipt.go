package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// ReceiptService queues vendor delivery receipts for the aggregator
type ReceiptService struct {
	publisher queue.Publisher
	streams   config.Streams
	log       *zap.Logger
	now       func() time.Time
}

func NewReceiptService(publisher queue.Publisher, streams config.Streams, log *zap.Logger) *ReceiptService {
	return &ReceiptService{
		publisher: publisher,
		streams:   streams,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReceipt appends a delivery.receipt entry and returns its entry id
func (s *ReceiptService) SubmitReceipt(ctx context.Context, req *dto.DeliveryReceiptRequest) (string, error) {
	if problems := validateStruct(req); len(problems) > 0 {
		return "", newValidationError(problems...)
	}

	event := dto.DeliveryReceiptEvent{
		CampaignID:      req.CampaignID,
		CustomerID:      req.CustomerID,
		VendorMessageID: req.VendorMessageID,
		Status:          req.Status,
		VendorMeta:      req.VendorMeta,
		ReceivedAt:      s.now(),
	}

	entryID, err := queue.PublishJSON(ctx, s.publisher, s.streams.Receipts, dto.EventDeliveryReceipt, event)
	if err != nil {
		return "", fmt.Errorf("failed to queue receipt: %w", err)
	}

	s.log.Debug("Receipt queued",
		zap.String("campaign_id", req.CampaignID),
		zap.String("customer_id", req.CustomerID),
		zap.String("status", req.Status),
		zap.String("entry_id", entryID))

	return entryID, nil
}
