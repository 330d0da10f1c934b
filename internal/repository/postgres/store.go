package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

// Store implements repository.Store on Postgres
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{pool: pool, log: log}
}

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	email text NOT NULL,
	phone text NOT NULL DEFAULT '',
	total_spend double precision NOT NULL DEFAULT 0,
	visits bigint NOT NULL DEFAULT 0,
	last_order_at timestamptz,
	last_active_at timestamptz,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS customers_email_idx ON customers (email);
CREATE INDEX IF NOT EXISTS customers_created_at_idx ON customers (created_at DESC);

CREATE TABLE IF NOT EXISTS orders (
	id uuid PRIMARY KEY,
	customer_id uuid NOT NULL REFERENCES customers (id),
	amount numeric(14, 2) NOT NULL,
	currency char(3) NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_customer_id_idx ON orders (customer_id);

CREATE TABLE IF NOT EXISTS segments (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	rules jsonb,
	audience_size bigint NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaigns (
	id uuid PRIMARY KEY,
	segment_id uuid NOT NULL REFERENCES segments (id),
	message text NOT NULL,
	status text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS campaigns_segment_id_idx ON campaigns (segment_id);

CREATE TABLE IF NOT EXISTS communication_logs (
	id uuid PRIMARY KEY,
	campaign_id uuid NOT NULL REFERENCES campaigns (id),
	customer_id uuid NOT NULL,
	status text NOT NULL,
	vendor_message_id text,
	vendor_meta jsonb,
	message text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (campaign_id, customer_id)
);
CREATE INDEX IF NOT EXISTS communication_logs_campaign_status_idx ON communication_logs (campaign_id, status);
`

// InitSchema creates tables and indexes if they don't exist
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.log.Info("Postgres schema initialized successfully")
	return nil
}

// Ping checks if the Postgres connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.log.Info("Closing Postgres connection pool")
	s.pool.Close()
	return nil
}
