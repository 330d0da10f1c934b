package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

// Repository archives delivery receipts in ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

var _ repository.ReceiptArchive = (*Repository)(nil)

// NewRepository creates a new ClickHouse receipt archive
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the receipts table. Redelivered receipts collapse on
// (campaign_id, customer_id, vendor_message_id, status), keeping the newest version.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS delivery_receipts (
		campaign_id String,
		customer_id String,
		vendor_message_id String,
		status LowCardinality(String),
		vendor_meta String,
		received_at DateTime64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PARTITION BY toYYYYMM(received_at)
	ORDER BY (campaign_id, customer_id, vendor_message_id, status)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create delivery_receipts table: %w", err)
	}

	r.log.Info("ClickHouse receipt archive schema initialized")
	return nil
}

// InsertBatch inserts a batch of receipts
func (r *Repository) InsertBatch(ctx context.Context, receipts []*domain.DeliveryReceipt) (int, error) {
	if len(receipts) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO delivery_receipts")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, receipt := range receipts {
		if receipt.Version == 0 {
			receipt.Version = uint64(time.Now().UnixNano())
		}
		if receipt.VendorMeta == "" {
			receipt.VendorMeta = "{}"
		}
		if err := batch.AppendStruct(receipt); err != nil {
			return 0, fmt.Errorf("failed to append receipt to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return len(receipts), nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

var groupByExpressions = map[string]struct{ field, order string }{
	"status": {"status", "ORDER BY total_count DESC"},
	"hour":   {"formatDateTime(toStartOfHour(received_at), '%Y-%m-%d %H:00:00')", "ORDER BY group_value ASC"},
	"day":    {"formatDateTime(toStartOfDay(received_at), '%Y-%m-%d')", "ORDER BY group_value ASC"},
}

// GetDeliveryMetrics aggregates the archived receipts of one campaign
func (r *Repository) GetDeliveryMetrics(ctx context.Context, query repository.DeliveryMetricsQuery) (*repository.DeliveryMetricsResult, error) {
	result := &repository.DeliveryMetricsResult{
		Groups: []repository.DeliveryMetricsGroup{},
	}

	var expr struct{ field, order string }
	if query.GroupBy != "" {
		var ok bool
		expr, ok = groupByExpressions[query.GroupBy]
		if !ok {
			return nil, fmt.Errorf("unsupported group_by value: %s (supported: status, hour, day)", query.GroupBy)
		}
	}

	whereClause := "WHERE campaign_id = ? AND received_at >= ? AND received_at <= ?"
	args := []interface{}{query.CampaignID, query.From, query.To}

	overallQuery := fmt.Sprintf(`
		SELECT
			count() AS total_count,
			countIf(status = 'SENT') AS sent_count,
			countIf(status = 'FAILED') AS failed_count
		FROM delivery_receipts FINAL
		%s
	`, whereClause)

	row := r.client.Conn().QueryRow(ctx, overallQuery, args...)
	if err := row.Scan(&result.TotalCount, &result.SentCount, &result.FailedCount); err != nil {
		return nil, fmt.Errorf("failed to query delivery metrics: %w", err)
	}

	if query.GroupBy == "" {
		return result, nil
	}

	groupedQuery := fmt.Sprintf(`
		SELECT
			%s AS group_value,
			count() AS total_count
		FROM delivery_receipts FINAL
		%s
		GROUP BY group_value
		%s
	`, expr.field, whereClause, expr.order)

	rows, err := r.client.Conn().Query(ctx, groupedQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped delivery metrics: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close grouped metrics rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var group repository.DeliveryMetricsGroup
		if err := rows.Scan(&group.GroupValue, &group.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan grouped metrics row: %w", err)
		}
		result.Groups = append(result.Groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grouped metrics rows: %w", err)
	}

	return result, nil
}
