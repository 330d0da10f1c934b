package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/rules"
)

const (
	defaultMetricsWindow = 7 * 24 * time.Hour
	maxHourlyWindow      = 90 * 24 * time.Hour
)

// CampaignStore is the storage used by CampaignService
type CampaignStore interface {
	repository.CustomerRepository
	repository.SegmentRepository
	repository.CampaignRepository
	repository.CommunicationLogRepository
}

// CampaignService creates campaigns and fans them out to the delivery stream
type CampaignService struct {
	store     CampaignStore
	publisher queue.Publisher
	archive   repository.ReceiptArchive
	streams   config.Streams
	log       *zap.Logger
	now       func() time.Time
}

// NewCampaignService creates a campaign service. archive may be nil when the
// receipt archive is not configured.
func NewCampaignService(store CampaignStore, publisher queue.Publisher, archive repository.ReceiptArchive, streams config.Streams, log *zap.Logger) *CampaignService {
	return &CampaignService{
		store:     store,
		publisher: publisher,
		archive:   archive,
		streams:   streams,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RenderMessage personalizes a campaign message for one customer
func RenderMessage(c *domain.Customer, template string) string {
	name := c.FirstName()
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s, %s", name, template)
}

func (s *CampaignService) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*domain.Campaign, error) {
	if problems := validateStruct(req); len(problems) > 0 {
		return nil, newValidationError(problems...)
	}

	segmentID := uuid.MustParse(req.SegmentID)
	if _, err := s.store.GetSegment(ctx, segmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to load segment: %w", err)
	}

	campaign := &domain.Campaign{
		ID:        uuid.New(),
		SegmentID: segmentID,
		Message:   req.Message,
		Status:    domain.CampaignCreated,
	}
	if err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.log.Info("Campaign created",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("segment_id", segmentID.String()))

	return campaign, nil
}

// ListCampaigns returns campaigns newest first with their delivery counts
func (s *CampaignService) ListCampaigns(ctx context.Context) ([]dto.CampaignWithStats, error) {
	campaigns, err := s.store.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	out := make([]dto.CampaignWithStats, 0, len(campaigns))
	for _, c := range campaigns {
		stats, err := s.store.CampaignStats(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stats of campaign %s: %w", c.ID, err)
		}
		out = append(out, dto.CampaignWithStats{Campaign: c, Stats: stats})
	}
	return out, nil
}

// SendCampaign resolves the audience, records one QUEUED log per member and
// queues a delivery for every member whose log is still QUEUED. Sending again
// while the campaign is SENDING enqueues every row still QUEUED, so a member whose
// first delivery is still in flight is sent to the vendor twice.
func (s *CampaignService) SendCampaign(ctx context.Context, campaignID string) (*dto.SendCampaignResponse, error) {
	id, err := uuid.Parse(campaignID)
	if err != nil {
		return nil, ErrCampaignNotFound
	}

	campaign, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.Status == domain.CampaignDone {
		return nil, ErrCampaignCompleted
	}

	segment, err := s.store.GetSegment(ctx, campaign.SegmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to load segment: %w", err)
	}

	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	audience := rules.Filter(customers, segment.Rules)

	resp := &dto.SendCampaignResponse{CampaignID: id.String(), AudienceSize: int64(len(audience))}
	if len(audience) == 0 {
		s.log.Info("Campaign has no matching customers", zap.String("campaign_id", id.String()))
		return resp, nil
	}

	changed, err := s.store.TransitionCampaign(ctx, id,
		[]domain.CampaignStatus{domain.CampaignCreated, domain.CampaignSending}, domain.CampaignSending)
	if err != nil {
		return nil, fmt.Errorf("failed to mark campaign as sending: %w", err)
	}
	if !changed {
		return nil, ErrCampaignCompleted
	}

	messages := make(map[uuid.UUID]string, len(audience))
	logs := make([]*domain.CommunicationLog, 0, len(audience))
	for _, c := range audience {
		msg := RenderMessage(c, campaign.Message)
		messages[c.ID] = msg
		logs = append(logs, &domain.CommunicationLog{
			ID:         uuid.New(),
			CampaignID: id,
			CustomerID: c.ID,
			Status:     domain.DeliveryQueued,
			Message:    msg,
		})
	}

	created, err := s.store.CreateLogs(ctx, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to create communication logs: %w", err)
	}

	queued, err := s.store.QueuedCustomerIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load queued deliveries: %w", err)
	}

	for _, customerID := range queued {
		msg, ok := messages[customerID]
		if !ok {
			continue
		}
		event := dto.DeliverySendEvent{
			CampaignID: id.String(),
			CustomerID: customerID.String(),
			Message:    msg,
		}
		if _, err := queue.PublishJSON(ctx, s.publisher, s.streams.Deliveries, dto.EventDeliverySend, event); err != nil {
			return nil, fmt.Errorf("failed to enqueue delivery after %d of %d: %w", resp.Enqueued, len(queued), err)
		}
		resp.Enqueued++
	}

	if resp.Enqueued == 0 {
		if err := s.finishIfDrained(ctx, id); err != nil {
			return nil, err
		}
	}

	s.log.Info("Campaign enqueued",
		zap.String("campaign_id", id.String()),
		zap.Int64("audience_size", resp.AudienceSize),
		zap.Int("logs_created", created),
		zap.Int("enqueued", resp.Enqueued))

	return resp, nil
}

// finishIfDrained completes a SENDING campaign that has no QUEUED logs left
func (s *CampaignService) finishIfDrained(ctx context.Context, id uuid.UUID) error {
	pending, err := s.store.CountLogs(ctx, id, domain.DeliveryQueued)
	if err != nil {
		return fmt.Errorf("failed to count pending deliveries: %w", err)
	}
	if pending > 0 {
		return nil
	}
	if _, err := s.store.TransitionCampaign(ctx, id,
		[]domain.CampaignStatus{domain.CampaignSending}, domain.CampaignDone); err != nil {
		return fmt.Errorf("failed to complete campaign: %w", err)
	}
	return nil
}

// DeliveryMetrics aggregates the archived receipts of a campaign
func (s *CampaignService) DeliveryMetrics(ctx context.Context, campaignID string, req *dto.DeliveryMetricsRequest) (*dto.DeliveryMetricsResponse, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}

	id, err := uuid.Parse(campaignID)
	if err != nil {
		return nil, ErrCampaignNotFound
	}
	if problems := validateStruct(req); len(problems) > 0 {
		return nil, newValidationError(problems...)
	}

	to := req.To
	if to.IsZero() {
		to = s.now()
	}
	from := req.From
	if from.IsZero() {
		from = to.Add(-defaultMetricsWindow)
	}
	if from.After(to) {
		return nil, newValidationError("from must not be after to")
	}
	if req.GroupBy == "hour" && to.Sub(from) > maxHourlyWindow {
		return nil, newValidationError(fmt.Sprintf("time range too large for hourly grouping (max 90 days, got %d days)", int(to.Sub(from).Hours()/24)))
	}

	if _, err := s.store.GetCampaign(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	result, err := s.archive.GetDeliveryMetrics(ctx, repository.DeliveryMetricsQuery{
		CampaignID: id.String(),
		From:       from,
		To:         to,
		GroupBy:    req.GroupBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery metrics from archive: %w", err)
	}

	response := &dto.DeliveryMetricsResponse{
		CampaignID:  id.String(),
		From:        from,
		To:          to,
		TotalCount:  result.TotalCount,
		SentCount:   result.SentCount,
		FailedCount: result.FailedCount,
		GroupBy:     req.GroupBy,
		Groups:      make([]dto.DeliveryMetricsGroup, 0, len(result.Groups)),
	}
	for _, group := range result.Groups {
		response.Groups = append(response.Groups, dto.DeliveryMetricsGroup{
			GroupValue: group.GroupValue,
			TotalCount: group.TotalCount,
		})
	}

	return response, nil
}
