// Package memory implements repository.Store in process memory. It is used by
// the service and consumer tests and mirrors the constraints of the Postgres
// schema: unique ids, order to customer references and one communication log
// per campaign and customer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
)

type logKey struct {
	campaignID uuid.UUID
	customerID uuid.UUID
}

type Store struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*domain.Customer
	orders    map[uuid.UUID]*domain.Order
	segments  map[uuid.UUID]*domain.Segment
	campaigns map[uuid.UUID]*domain.Campaign
	logs      map[logKey]*domain.CommunicationLog
	now       func() time.Time

	// FailUpdate, when set, is consulted for every bulk update and may fail it
	FailUpdate func(domain.LogStatusUpdate) error
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		customers: make(map[uuid.UUID]*domain.Customer),
		orders:    make(map[uuid.UUID]*domain.Order),
		segments:  make(map[uuid.UUID]*domain.Segment),
		campaigns: make(map[uuid.UUID]*domain.Campaign),
		logs:      make(map[logKey]*domain.CommunicationLog),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) InitSchema(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateCustomer(_ context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; ok {
		return repository.ErrDuplicate
	}
	now := s.now()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	c := *customer
	s.customers[c.ID] = &c
	return nil
}

func (s *Store) GetCustomer(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedCustomersLocked(), nil
}

func (s *Store) ListCustomersPage(_ context.Context, limit, offset int) ([]*domain.Customer, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedCustomersLocked()
	total := int64(len(all))
	if offset >= len(all) {
		return []*domain.Customer{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *Store) sortedCustomersLocked() []*domain.Customer {
	out := make([]*domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ApplyOrder(_ context.Context, customerID uuid.UUID, amount float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalSpend += amount
	if c.LastOrderAt == nil || at.After(*c.LastOrderAt) {
		t := at
		c.LastOrderAt = &t
	}
	c.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.customers[order.CustomerID]; !ok {
		return repository.ErrNotFound
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	o := *order
	s.orders[o.ID] = &o
	return nil
}

// OrderCount returns the number of stored orders
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) CreateSegment(_ context.Context, segment *domain.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[segment.ID]; ok {
		return repository.ErrDuplicate
	}
	now := s.now()
	segment.CreatedAt, segment.UpdatedAt = now, now
	sg := *segment
	s.segments[sg.ID] = &sg
	return nil
}

func (s *Store) GetSegment(_ context.Context, id uuid.UUID) (*domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.segments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sg
	return &cp, nil
}

func (s *Store) ListSegments(_ context.Context) ([]*domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Segment, 0, len(s.segments))
	for _, sg := range s.segments {
		cp := *sg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateCampaign(_ context.Context, campaign *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaign.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.segments[campaign.SegmentID]; !ok {
		return repository.ErrNotFound
	}
	now := s.now()
	campaign.CreatedAt, campaign.UpdatedAt = now, now
	c := *campaign
	s.campaigns[c.ID] = &c
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCampaigns(_ context.Context) ([]*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TransitionCampaign(_ context.Context, id uuid.UUID, from []domain.CampaignStatus, to domain.CampaignStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if c.Status == st {
			c.Status = to
			c.UpdatedAt = s.now()
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateLogs(_ context.Context, logs []*domain.CommunicationLog) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	now := s.now()
	for _, l := range logs {
		key := logKey{l.CampaignID, l.CustomerID}
		if _, ok := s.logs[key]; ok {
			continue
		}
		cp := *l
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		if cp.Status == "" {
			cp.Status = domain.DeliveryQueued
		}
		cp.CreatedAt, cp.UpdatedAt = now, now
		s.logs[key] = &cp
		inserted++
	}
	return inserted, nil
}

// GetLog returns the communication log of a campaign and customer
func (s *Store) GetLog(campaignID, customerID uuid.UUID) (*domain.CommunicationLog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[logKey{campaignID, customerID}]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}

func (s *Store) QueuedCustomerIDs(_ context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for key, l := range s.logs {
		if key.campaignID == campaignID && l.Status == domain.DeliveryQueued {
			ids = append(ids, key.customerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (s *Store) BulkUpdateLogStatus(_ context.Context, updates []domain.LogStatusUpdate) (domain.BulkWriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result domain.BulkWriteResult
	now := s.now()
	for i, u := range updates {
		if s.FailUpdate != nil {
			if err := s.FailUpdate(u); err != nil {
				result.Errors = append(result.Errors, domain.BulkWriteError{Index: i, Err: err})
				continue
			}
		}
		l, ok := s.logs[logKey{u.CampaignID, u.CustomerID}]
		if !ok {
			continue
		}
		l.Status = u.Status
		if u.VendorMessageID != "" {
			id := u.VendorMessageID
			l.VendorMessageID = &id
		}
		if len(u.VendorMeta) > 0 {
			l.VendorMeta = append(l.VendorMeta[:0:0], u.VendorMeta...)
		}
		l.UpdatedAt = now
		result.Matched++
	}
	return result, nil
}

func (s *Store) CountLogs(_ context.Context, campaignID uuid.UUID, status domain.DeliveryStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key, l := range s.logs {
		if key.campaignID == campaignID && l.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) CampaignStats(_ context.Context, campaignID uuid.UUID) (domain.CampaignStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.CampaignStats
	for key, l := range s.logs {
		if key.campaignID != campaignID {
			continue
		}
		stats.Audience++
		switch l.Status {
		case domain.DeliverySent:
			stats.Sent++
		case domain.DeliveryFailed:
			stats.Failed++
		case domain.DeliveryQueued:
			stats.Queued++
		}
	}
	return stats, nil
}
