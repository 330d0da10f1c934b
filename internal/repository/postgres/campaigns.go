package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

func (s *Store) CreateSegment(ctx context.Context, sg *domain.Segment) error {
	rules, err := json.Marshal(sg.Rules)
	if err != nil {
		return fmt.Errorf("marshal segment rules: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO segments (id, name, rules, audience_size)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING created_at, updated_at`,
		sg.ID, sg.Name, string(rules), sg.AudienceSize,
	).Scan(&sg.CreatedAt, &sg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create segment %s: %w", sg.ID, mapError(err))
	}
	return nil
}

func scanSegment(row pgx.Row) (*domain.Segment, error) {
	var (
		sg    domain.Segment
		rules []byte
	)
	if err := row.Scan(&sg.ID, &sg.Name, &rules, &sg.AudienceSize, &sg.CreatedAt, &sg.UpdatedAt); err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &sg.Rules); err != nil {
			return nil, fmt.Errorf("decode rules of segment %s: %w", sg.ID, err)
		}
	}
	return &sg, nil
}

func (s *Store) GetSegment(ctx context.Context, id uuid.UUID) (*domain.Segment, error) {
	sg, err := scanSegment(s.pool.QueryRow(ctx,
		`SELECT id, name, rules, audience_size, created_at, updated_at FROM segments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get segment %s: %w", id, mapError(err))
	}
	return sg, nil
}

func (s *Store) ListSegments(ctx context.Context) ([]*domain.Segment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, rules, audience_size, created_at, updated_at FROM segments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	segments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Segment, error) {
		return scanSegment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan segments: %w", err)
	}
	return segments, nil
}

func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO campaigns (id, segment_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		c.ID, c.SegmentID, c.Message, string(c.Status),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign %s: %w", c.ID, mapError(err))
	}
	return nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c      domain.Campaign
		status string
	)
	if err := row.Scan(&c.ID, &c.SegmentID, &c.Message, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignStatus(status)
	return &c, nil
}

func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx,
		`SELECT id, segment_id, message, status, created_at, updated_at FROM campaigns WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, mapError(err))
	}
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, segment_id, message, status, created_at, updated_at FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	campaigns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Campaign, error) {
		return scanCampaign(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *Store) TransitionCampaign(ctx context.Context, id uuid.UUID, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error) {
	fromStrings := make([]string, len(from))
	for i, st := range from {
		fromStrings[i] = string(st)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3::text[])`,
		id, string(to), fromStrings)
	if err != nil {
		return false, fmt.Errorf("transition campaign %s to %s: %w", id, to, err)
	}
	return tag.RowsAffected() > 0, nil
}
