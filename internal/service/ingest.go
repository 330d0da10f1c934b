package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// IngestService validates customers and orders and queues them for the
// ingestion consumers. It never writes the store directly.
type IngestService struct {
	publisher queue.Publisher
	customers repository.CustomerRepository
	streams   config.Streams
	log       *zap.Logger
	now       func() time.Time
}

func NewIngestService(publisher queue.Publisher, customers repository.CustomerRepository, streams config.Streams, log *zap.Logger) *IngestService {
	return &IngestService{
		publisher: publisher,
		customers: customers,
		streams:   streams,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitCustomer queues a customer.created event and returns the identity the
// customer will be stored under
func (s *IngestService) SubmitCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = domain.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if problems := validateStruct(req); len(problems) > 0 {
		return "", newValidationError(problems...)
	}

	id := uuid.New().String()
	event := dto.CustomerCreatedEvent{
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		TotalSpend:   req.TotalSpend,
		Visits:       req.Visits,
		LastOrderAt:  req.LastOrderAt,
		LastActiveAt: req.LastActiveAt,
	}

	entryID, err := queue.PublishJSON(ctx, s.publisher, s.streams.Customers, dto.EventCustomerCreated, event)
	if err != nil {
		return "", fmt.Errorf("failed to queue customer: %w", err)
	}

	s.log.Info("Customer queued",
		zap.String("customer_id", id),
		zap.String("entry_id", entryID))

	return id, nil
}

// SubmitOrder queues an order.created event and returns the order identity
func (s *IngestService) SubmitOrder(ctx context.Context, req *dto.CreateOrderRequest) (string, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = domain.DefaultCurrency
	}

	problems := validateStruct(req)
	if !req.Amount.IsPositive() {
		problems = append(problems, "amount must be greater than 0")
	}
	if len(problems) > 0 {
		return "", newValidationError(problems...)
	}

	id := uuid.New().String()
	event := dto.OrderCreatedEvent{
		ID:         id,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CreatedAt:  s.now(),
	}

	entryID, err := queue.PublishJSON(ctx, s.publisher, s.streams.Orders, dto.EventOrderCreated, event)
	if err != nil {
		return "", fmt.Errorf("failed to queue order: %w", err)
	}

	s.log.Info("Order queued",
		zap.String("order_id", id),
		zap.String("customer_id", req.CustomerID),
		zap.String("entry_id", entryID))

	return id, nil
}

// ListCustomers returns one page of materialized customers, newest first
func (s *IngestService) ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	customers, total, err := s.customers.ListCustomersPage(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	if customers == nil {
		customers = []*domain.Customer{}
	}

	return &dto.ListCustomersResponse{
		Data: customers,
		Meta: dto.PageMeta{Page: page, Limit: limit, Total: total},
	}, nil
}
