package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

// CustomerIngestHandler materializes customer.created entries
type CustomerIngestHandler struct {
	customers repository.CustomerRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewCustomerIngestHandler(customers repository.CustomerRepository, log *zap.Logger) *CustomerIngestHandler {
	return &CustomerIngestHandler{
		customers: customers,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle inserts the customer under its pre-generated id. A duplicate id means
// the entry was already materialized and counts as success.
func (h *CustomerIngestHandler) Handle(ctx context.Context, env *Envelope) error {
	event, err := decodeEntry[dto.CustomerCreatedEvent](env.Entry, dto.EventCustomerCreated)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("invalid customer id %q: %w", event.ID, err)
	}

	now := h.now()
	customer := &domain.Customer{
		ID:           id,
		Name:         strings.TrimSpace(event.Name),
		Email:        domain.NormalizeEmail(event.Email),
		Phone:        event.Phone,
		TotalSpend:   event.TotalSpend,
		Visits:       event.Visits,
		LastOrderAt:  event.LastOrderAt,
		LastActiveAt: event.LastActiveAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.customers.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.Get().EntriesProcessed.WithLabelValues(env.Stream, env.Group, "duplicate").Inc()
			h.log.Info("Customer already materialized", zap.String("customer_id", event.ID))
			return nil
		}
		return fmt.Errorf("failed to create customer %s: %w", event.ID, err)
	}

	h.log.Debug("Customer materialized", zap.String("customer_id", event.ID))
	return nil
}

// OrderIngestHandler materializes order.created entries and rolls the amount
// up into the owning customer
type OrderIngestHandler struct {
	store orderStore
	log   *zap.Logger
}

type orderStore interface {
	repository.OrderRepository
	ApplyOrder(ctx context.Context, customerID uuid.UUID, amount float64, at time.Time) error
}

func NewOrderIngestHandler(store orderStore, log *zap.Logger) *OrderIngestHandler {
	return &OrderIngestHandler{store: store, log: log}
}

// Handle inserts the order under its pre-generated id. An unknown customer is
// not checked up front; the insert fails and the entry stays pending.
func (h *OrderIngestHandler) Handle(ctx context.Context, env *Envelope) error {
	event, err := decodeEntry[dto.OrderCreatedEvent](env.Entry, dto.EventOrderCreated)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", event.ID, err)
	}
	customerID, err := uuid.Parse(event.CustomerID)
	if err != nil {
		return fmt.Errorf("invalid customer id %q: %w", event.CustomerID, err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	order := &domain.Order{
		ID:         id,
		CustomerID: customerID,
		Amount:     event.Amount,
		Currency:   event.Currency,
		CreatedAt:  createdAt,
	}

	if err := h.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.Get().EntriesProcessed.WithLabelValues(env.Stream, env.Group, "duplicate").Inc()
			h.log.Info("Order already materialized", zap.String("order_id", event.ID))
			return nil
		}
		return fmt.Errorf("failed to create order %s: %w", event.ID, err)
	}

	// The order row exists from here on, so a failure below is not retried
	// through a redelivered insert.
	if err := h.store.ApplyOrder(ctx, customerID, event.Amount.InexactFloat64(), createdAt); err != nil {
		h.log.Error("Failed to roll order up into customer",
			zap.String("order_id", event.ID),
			zap.String("customer_id", event.CustomerID),
			zap.Error(err))
		return nil
	}

	h.log.Debug("Order materialized",
		zap.String("order_id", event.ID),
		zap.String("customer_id", event.CustomerID))
	return nil
}
