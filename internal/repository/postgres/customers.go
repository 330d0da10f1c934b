package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

const customerColumns = `id, name, email, phone, total_spend, visits, last_order_at, last_active_at, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpend, &c.Visits,
		&c.LastOrderAt, &c.LastActiveAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, total_spend, visits, last_order_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.TotalSpend, c.Visits, c.LastOrderAt, c.LastActiveAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer %s: %w", c.ID, mapError(err))
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, mapError(err))
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return collectCustomers(rows)
}

func (s *Store) ListCustomersPage(ctx context.Context, limit, offset int) ([]*domain.Customer, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers page: %w", err)
	}
	customers, err := collectCustomers(rows)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func collectCustomers(rows pgx.Rows) ([]*domain.Customer, error) {
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Customer, error) {
		return scanCustomer(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan customers: %w", err)
	}
	return customers, nil
}

func (s *Store) ApplyOrder(ctx context.Context, customerID uuid.UUID, amount float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE customers
		SET total_spend = total_spend + $2,
			last_order_at = GREATEST(COALESCE(last_order_at, $3), $3),
			updated_at = now()
		WHERE id = $1`,
		customerID, amount, at)
	if err != nil {
		return fmt.Errorf("apply order to customer %s: %w", customerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply order to customer %s: %w", customerID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	var createdAt *time.Time
	if !o.CreatedAt.IsZero() {
		createdAt = &o.CreatedAt
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, amount, currency, created_at)
		VALUES ($1, $2, $3::text::numeric, $4, COALESCE($5, now()))
		RETURNING created_at`,
		o.ID, o.CustomerID, o.Amount.String(), o.Currency, createdAt,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, mapError(err))
	}
	return nil
}
