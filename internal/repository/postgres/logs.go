package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

func pgUUIDArray(ids []uuid.UUID) pgtype.FlatArray[uuid.UUID] {
	return pgtype.FlatArray[uuid.UUID](ids)
}

func (s *Store) CreateLogs(ctx context.Context, logs []*domain.CommunicationLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(logs))
	campaignIDs := make([]uuid.UUID, len(logs))
	customerIDs := make([]uuid.UUID, len(logs))
	statuses := make([]string, len(logs))
	messages := make([]string, len(logs))
	for i, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.Status == "" {
			l.Status = domain.DeliveryQueued
		}
		ids[i], campaignIDs[i], customerIDs[i] = l.ID, l.CampaignID, l.CustomerID
		statuses[i], messages[i] = string(l.Status), l.Message
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO communication_logs (id, campaign_id, customer_id, status, message)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::text[])
		ON CONFLICT (campaign_id, customer_id) DO NOTHING`,
		pgUUIDArray(ids), pgUUIDArray(campaignIDs), pgUUIDArray(customerIDs), statuses, messages)
	if err != nil {
		return 0, fmt.Errorf("insert communication logs: %w", mapError(err))
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) QueuedCustomerIDs(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id FROM communication_logs
		WHERE campaign_id = $1 AND status = $2
		ORDER BY customer_id`,
		campaignID, string(domain.DeliveryQueued))
	if err != nil {
		return nil, fmt.Errorf("list queued customers of campaign %s: %w", campaignID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan queued customers: %w", err)
	}
	return ids, nil
}

// execer is the slice of the pool used by bulk writes
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const bulkUpdateLogsSQL = `
	UPDATE communication_logs AS l
	SET status = u.status,
		vendor_message_id = COALESCE(NULLIF(u.vendor_message_id, ''), l.vendor_message_id),
		vendor_meta = COALESCE(NULLIF(u.vendor_meta, '')::jsonb, l.vendor_meta),
		updated_at = now()
	FROM unnest($1::uuid[], $2::uuid[], $3::text[], $4::text[], $5::text[])
		AS u(campaign_id, customer_id, status, vendor_message_id, vendor_meta)
	WHERE l.campaign_id = u.campaign_id AND l.customer_id = u.customer_id`

const updateLogSQL = `
	UPDATE communication_logs
	SET status = $3::text,
		vendor_message_id = COALESCE(NULLIF($4::text, ''), vendor_message_id),
		vendor_meta = COALESCE(NULLIF($5::text, '')::jsonb, vendor_meta),
		updated_at = now()
	WHERE campaign_id = $1 AND customer_id = $2`

// BulkUpdateLogStatus applies all updates in one statement. Repeated keys are
// collapsed beforehand so the last update of a key wins. When the statement fails
// the updates are retried one by one and each failure is reported in
// BulkWriteResult.Errors against every index sharing its key.
func (s *Store) BulkUpdateLogStatus(ctx context.Context, updates []domain.LogStatusUpdate) (domain.BulkWriteResult, error) {
	result, err := bulkUpdateLogStatus(ctx, s.pool, updates)
	if len(result.Errors) > 0 {
		s.log.Warn("Bulk log update fell back to single updates",
			zap.Int("update_count", len(updates)),
			zap.Int("failed_count", len(result.Errors)))
	}
	return result, err
}

func bulkUpdateLogStatus(ctx context.Context, db execer, updates []domain.LogStatusUpdate) (domain.BulkWriteResult, error) {
	var result domain.BulkWriteResult
	if len(updates) == 0 {
		return result, nil
	}

	type key struct{ campaign, customer uuid.UUID }
	last := make(map[key]int, len(updates))
	indexes := make(map[key][]int, len(updates))
	for i, u := range updates {
		k := key{u.CampaignID, u.CustomerID}
		last[k] = i
		indexes[k] = append(indexes[k], i)
	}

	var (
		rows                          []domain.LogStatusUpdate
		campaignIDs, customerIDs      []uuid.UUID
		statuses, vendorIDs, metaJSON []string
	)
	for i, u := range updates {
		if last[key{u.CampaignID, u.CustomerID}] != i {
			continue
		}
		rows = append(rows, u)
		campaignIDs = append(campaignIDs, u.CampaignID)
		customerIDs = append(customerIDs, u.CustomerID)
		statuses = append(statuses, string(u.Status))
		vendorIDs = append(vendorIDs, u.VendorMessageID)
		metaJSON = append(metaJSON, string(u.VendorMeta))
	}

	tag, err := db.Exec(ctx, bulkUpdateLogsSQL,
		pgUUIDArray(campaignIDs), pgUUIDArray(customerIDs), statuses, vendorIDs, metaJSON)
	if err == nil {
		result.Matched = tag.RowsAffected()
		return result, nil
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("bulk update communication logs: %w", err)
	}

	for _, u := range rows {
		tag, err := db.Exec(ctx, updateLogSQL,
			u.CampaignID, u.CustomerID, string(u.Status), u.VendorMessageID, string(u.VendorMeta))
		if err != nil {
			werr := fmt.Errorf("update log of customer %s: %w", u.CustomerID, err)
			for _, i := range indexes[key{u.CampaignID, u.CustomerID}] {
				result.Errors = append(result.Errors, domain.BulkWriteError{Index: i, Err: werr})
			}
			continue
		}
		result.Matched += tag.RowsAffected()
	}
	sort.Slice(result.Errors, func(a, b int) bool { return result.Errors[a].Index < result.Errors[b].Index })
	return result, nil
}

func (s *Store) CountLogs(ctx context.Context, campaignID uuid.UUID, status domain.DeliveryStatus) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM communication_logs WHERE campaign_id = $1 AND status = $2`,
		campaignID, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s logs of campaign %s: %w", status, campaignID, err)
	}
	return n, nil
}

func (s *Store) CampaignStats(ctx context.Context, campaignID uuid.UUID) (domain.CampaignStats, error) {
	var stats domain.CampaignStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'SENT'),
			count(*) FILTER (WHERE status = 'FAILED'),
			count(*) FILTER (WHERE status = 'QUEUED')
		FROM communication_logs
		WHERE campaign_id = $1`,
		campaignID).Scan(&stats.Audience, &stats.Sent, &stats.Failed, &stats.Queued)
	if err != nil {
		return stats, fmt.Errorf("campaign %s stats: %w", campaignID, err)
	}
	return stats, nil
}
