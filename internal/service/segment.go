package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/rules"
)

// SegmentStore is the storage used by SegmentService
type SegmentStore interface {
	repository.CustomerRepository
	repository.SegmentRepository
}

type SegmentService struct {
	store SegmentStore
	log   *zap.Logger
}

func NewSegmentService(store SegmentStore, log *zap.Logger) *SegmentService {
	return &SegmentService{store: store, log: log}
}

// CreateSegment stores the segment with the audience size it matches right now
func (s *SegmentService) CreateSegment(ctx context.Context, req *dto.CreateSegmentRequest) (*domain.Segment, error) {
	req.Name = strings.TrimSpace(req.Name)

	problems := validateStruct(req)
	if req.Rules != nil {
		problems = append(problems, rules.Validate(req.Rules)...)
	}
	if len(problems) > 0 {
		return nil, newValidationError(problems...)
	}

	size, err := s.audienceSize(ctx, req.Rules)
	if err != nil {
		return nil, err
	}

	segment := &domain.Segment{
		ID:           uuid.New(),
		Name:         req.Name,
		Rules:        req.Rules,
		AudienceSize: size,
	}
	if err := s.store.CreateSegment(ctx, segment); err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}

	s.log.Info("Segment created",
		zap.String("segment_id", segment.ID.String()),
		zap.Int64("audience_size", size))

	return segment, nil
}

// PreviewSegment counts the customers the rule tree matches without storing anything
func (s *SegmentService) PreviewSegment(ctx context.Context, req *dto.PreviewSegmentRequest) (int64, error) {
	problems := validateStruct(req)
	if req.Rules != nil {
		problems = append(problems, rules.Validate(req.Rules)...)
	}
	if len(problems) > 0 {
		return 0, newValidationError(problems...)
	}

	return s.audienceSize(ctx, req.Rules)
}

func (s *SegmentService) ListSegments(ctx context.Context) ([]*domain.Segment, error) {
	segments, err := s.store.ListSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	if segments == nil {
		segments = []*domain.Segment{}
	}
	return segments, nil
}

func (s *SegmentService) audienceSize(ctx context.Context, rule *domain.Rule) (int64, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load customers: %w", err)
	}
	return int64(rules.Count(customers, rule)), nil
}
