package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

// ReceiptStore is the part of the store the aggregator writes to
type ReceiptStore interface {
	BulkUpdateLogStatus(ctx context.Context, updates []domain.LogStatusUpdate) (domain.BulkWriteResult, error)
	CountLogs(ctx context.Context, campaignID uuid.UUID, status domain.DeliveryStatus) (int64, error)
	TransitionCampaign(ctx context.Context, id uuid.UUID, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error)
}

// ReceiptAggregator applies delivery receipts to communication logs in bulk and
// completes campaigns with nothing left queued
type ReceiptAggregator struct {
	store   ReceiptStore
	archive repository.ReceiptArchive
	log     *zap.Logger
}

// NewReceiptAggregator creates the aggregator. archive may be nil.
func NewReceiptAggregator(store ReceiptStore, archive repository.ReceiptArchive, log *zap.Logger) *ReceiptAggregator {
	return &ReceiptAggregator{store: store, archive: archive, log: log}
}

type stagedReceipt struct {
	env     *Envelope
	event   *dto.DeliveryReceiptEvent
	update  domain.LogStatusUpdate
	applied bool
}

// HandleBatch stages one update per receipt, applies them as a single
// unordered bulk write, recomputes every touched campaign and only then acks.
// Entries whose update or recompute failed are failed so they come back.
func (a *ReceiptAggregator) HandleBatch(ctx context.Context, envelopes []*Envelope) {
	staged := make([]*stagedReceipt, 0, len(envelopes))
	for _, env := range envelopes {
		receipt, err := a.stage(env)
		if err != nil {
			a.failEntry(ctx, env, err)
			continue
		}
		staged = append(staged, receipt)
	}
	if len(staged) == 0 {
		return
	}

	updates := make([]domain.LogStatusUpdate, len(staged))
	for i, s := range staged {
		updates[i] = s.update
	}

	result, err := a.store.BulkUpdateLogStatus(ctx, updates)
	if err != nil {
		a.log.Error("Bulk receipt update failed", zap.Int("update_count", len(updates)), zap.Error(err))
		for _, s := range staged {
			a.failEntry(ctx, s.env, err)
		}
		return
	}

	for _, s := range staged {
		s.applied = true
	}
	for _, werr := range result.Errors {
		if werr.Index < 0 || werr.Index >= len(staged) {
			continue
		}
		s := staged[werr.Index]
		s.applied = false
		a.failEntry(ctx, s.env, fmt.Errorf("update failed: %w", werr.Err))
	}

	// Recompute every touched campaign, even one whose updates all failed,
	// so a completion missed by an earlier batch is picked up.
	recomputeErrs := make(map[uuid.UUID]error)
	for _, s := range staged {
		id := s.update.CampaignID
		if _, seen := recomputeErrs[id]; seen {
			continue
		}
		recomputeErrs[id] = a.recompute(ctx, id)
	}

	var applied []*stagedReceipt
	for _, s := range staged {
		if !s.applied {
			continue
		}
		if err := recomputeErrs[s.update.CampaignID]; err != nil {
			a.failEntry(ctx, s.env, err)
			continue
		}
		if err := s.env.Ack(ctx); err != nil {
			a.log.Error("Failed to ack receipt", zap.String("entry_id", s.env.Entry.ID), zap.Error(err))
			continue
		}
		metrics.Get().ReceiptsApplied.WithLabelValues(string(s.update.Status)).Inc()
		applied = append(applied, s)
	}

	a.log.Debug("Receipt batch applied",
		zap.Int("entry_count", len(envelopes)),
		zap.Int("applied", len(applied)),
		zap.Int64("matched", result.Matched),
		zap.Int("campaigns", len(recomputeErrs)))

	a.archiveReceipts(ctx, applied)
}

func (a *ReceiptAggregator) stage(env *Envelope) (*stagedReceipt, error) {
	event, err := decodeEntry[dto.DeliveryReceiptEvent](env.Entry, dto.EventDeliveryReceipt)
	if err != nil {
		return nil, err
	}

	campaignID, err := uuid.Parse(event.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign id %q: %w", event.CampaignID, err)
	}
	customerID, err := uuid.Parse(event.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id %q: %w", event.CustomerID, err)
	}

	status := domain.DeliveryStatus(event.Status)
	if !status.IsTerminal() {
		return nil, fmt.Errorf("invalid receipt status %q", event.Status)
	}

	return &stagedReceipt{
		env:   env,
		event: event,
		update: domain.LogStatusUpdate{
			CampaignID:      campaignID,
			CustomerID:      customerID,
			Status:          status,
			VendorMessageID: event.VendorMessageID,
			VendorMeta:      event.VendorMeta,
		},
	}, nil
}

// recompute marks the campaign DONE once none of its logs are QUEUED. A DONE
// campaign is left as is.
func (a *ReceiptAggregator) recompute(ctx context.Context, campaignID uuid.UUID) error {
	queued, err := a.store.CountLogs(ctx, campaignID, domain.DeliveryQueued)
	if err != nil {
		a.log.Error("Failed to count queued logs", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		return fmt.Errorf("count queued logs of %s: %w", campaignID, err)
	}
	if queued > 0 {
		return nil
	}

	changed, err := a.store.TransitionCampaign(ctx, campaignID,
		[]domain.CampaignStatus{domain.CampaignSending}, domain.CampaignDone)
	if err != nil {
		a.log.Error("Failed to complete campaign", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		return fmt.Errorf("complete campaign %s: %w", campaignID, err)
	}
	if changed {
		metrics.Get().CampaignsFinished.Inc()
		a.log.Info("Campaign completed", zap.String("campaign_id", campaignID.String()))
	}
	return nil
}

func (a *ReceiptAggregator) archiveReceipts(ctx context.Context, applied []*stagedReceipt) {
	if a.archive == nil || len(applied) == 0 {
		return
	}

	receipts := make([]*domain.DeliveryReceipt, len(applied))
	for i, s := range applied {
		receivedAt := s.event.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now().UTC()
		}
		receipts[i] = &domain.DeliveryReceipt{
			CampaignID:      s.event.CampaignID,
			CustomerID:      s.event.CustomerID,
			VendorMessageID: s.event.VendorMessageID,
			Status:          s.event.Status,
			VendorMeta:      string(s.event.VendorMeta),
			ReceivedAt:      receivedAt,
			Version:         uint64(receivedAt.UnixNano()),
		}
	}

	if _, err := a.archive.InsertBatch(ctx, receipts); err != nil {
		a.log.Warn("Failed to archive receipts", zap.Int("receipt_count", len(receipts)), zap.Error(err))
	}
}

func (a *ReceiptAggregator) failEntry(ctx context.Context, env *Envelope, cause error) {
	if err := env.Fail(ctx, cause); err != nil {
		a.log.Error("Failed to fail receipt", zap.String("entry_id", env.Entry.ID), zap.Error(err))
	}
}
