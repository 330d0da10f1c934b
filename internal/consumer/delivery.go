package consumer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
)

// DeliveryHandler hands deliver.send entries to the vendor
type DeliveryHandler struct {
	vendor service.VendorServicer
	log    *zap.Logger
}

func NewDeliveryHandler(vendor service.VendorServicer, log *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{vendor: vendor, log: log}
}

// Handle sends one personalized message. The outcome arrives later as a receipt.
func (h *DeliveryHandler) Handle(ctx context.Context, env *Envelope) error {
	event, err := decodeEntry[dto.DeliverySendEvent](env.Entry, dto.EventDeliverySend)
	if err != nil {
		return err
	}

	resp, err := h.vendor.Send(ctx, &dto.VendorSendRequest{
		CampaignID: event.CampaignID,
		CustomerID: event.CustomerID,
		Message:    event.Message,
	})
	if err != nil {
		return fmt.Errorf("vendor send failed: %w", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("vendor rejected message for customer %s", event.CustomerID)
	}

	h.log.Debug("Message handed to vendor",
		zap.String("campaign_id", event.CampaignID),
		zap.String("customer_id", event.CustomerID),
		zap.String("vendor_message_id", resp.VendorMessageID))
	return nil
}
