package vendorsim

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
)

const (
	providerName    = "simulator"
	callbackTimeout = 10 * time.Second
)

type meta struct {
	Provider  string `json:"provider"`
	LatencyMs int64  `json:"latency_ms"`
}

// Simulator accepts messages synchronously and reports their outcome later
// through the receipt intake, like a webhook based delivery vendor
type Simulator struct {
	receipts    service.ReceiptServicer
	minDelay    time.Duration
	maxDelay    time.Duration
	failureRate float64
	log         *zap.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	wg      sync.WaitGroup
	stopped bool
	now     func() time.Time
}

var _ service.VendorServicer = (*Simulator)(nil)

func NewSimulator(receipts service.ReceiptServicer, cfg config.Vendor, log *zap.Logger) *Simulator {
	return &Simulator{
		receipts:    receipts,
		minDelay:    cfg.MinDelay,
		maxDelay:    cfg.MaxDelay,
		failureRate: cfg.FailureRate,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Send accepts the message and schedules its receipt after a random delay
func (s *Simulator) Send(ctx context.Context, req *dto.VendorSendRequest) (*dto.VendorSendResponse, error) {
	if err := service.ValidateRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("vendor simulator is shut down")
	}
	delay := s.delayLocked()
	status := domain.DeliverySent
	if s.rng.Float64() < s.failureRate {
		status = domain.DeliveryFailed
	}
	messageID := fmt.Sprintf("%d-%d", s.now().UnixMilli(), s.rng.Intn(1_000_000))
	s.wg.Add(1)
	s.mu.Unlock()

	vendorMeta, err := json.Marshal(meta{Provider: providerName, LatencyMs: delay.Milliseconds()})
	if err != nil {
		s.wg.Done()
		return nil, fmt.Errorf("failed to marshal vendor meta: %w", err)
	}

	receipt := &dto.DeliveryReceiptRequest{
		CampaignID:      req.CampaignID,
		CustomerID:      req.CustomerID,
		VendorMessageID: messageID,
		Status:          string(status),
		VendorMeta:      vendorMeta,
	}

	base := context.WithoutCancel(ctx)
	time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.deliverReceipt(base, receipt)
	})

	s.log.Debug("Message accepted",
		zap.String("campaign_id", req.CampaignID),
		zap.String("customer_id", req.CustomerID),
		zap.String("vendor_message_id", messageID),
		zap.Duration("delay", delay))

	return &dto.VendorSendResponse{Accepted: true, VendorMessageID: messageID}, nil
}

func (s *Simulator) delayLocked() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int63n(int64(s.maxDelay-s.minDelay)+1))
}

func (s *Simulator) deliverReceipt(ctx context.Context, receipt *dto.DeliveryReceiptRequest) {
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	if _, err := s.receipts.SubmitReceipt(ctx, receipt); err != nil {
		metrics.Get().VendorSends.WithLabelValues("callback_error").Inc()
		s.log.Error("Failed to submit receipt",
			zap.String("campaign_id", receipt.CampaignID),
			zap.String("customer_id", receipt.CustomerID),
			zap.String("vendor_message_id", receipt.VendorMessageID),
			zap.Error(err))
		return
	}
	metrics.Get().VendorSends.WithLabelValues(receipt.Status).Inc()
}

// Shutdown stops accepting messages and waits for scheduled receipts
func (s *Simulator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for vendor receipts: %w", ctx.Err())
	}
}
