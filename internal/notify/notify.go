// Package notify delivers state-transition events to an external webhook.
// Delivery is best-effort: a failed or dropped notification never rolls back
// the ledger mutation it describes.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Event struct {
	Kind        string    `json:"kind"`
	ReferenceID string    `json:"reference_id"`
	UserID      string    `json:"user_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderDelivered     = "order.delivered"
	EventOrderCompleted     = "order.completed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderRefunded      = "order.refunded"
	EventRefundRequested    = "refund.requested"
	EventRefundRejected     = "refund.rejected"
	EventWithdrawalCreated  = "withdrawal.created"
	EventWithdrawalApproved = "withdrawal.approved"
	EventWithdrawalRejected = "withdrawal.rejected"
	EventWalletTopup        = "wallet.topup"
)

type Notifier interface {
	Notify(event Event)
}

// Service fans events out to a bounded queue consumed by background workers.
// When the queue is full the event is dropped with a warning.
type Service struct {
	url    string
	client *http.Client
	queue  chan Event
}

const (
	queueSize   = 256
	workerCount = 4
	sendTimeout = 10 * time.Second
)

func New(url string) *Service {
	s := &Service{
		url:    url,
		client: &http.Client{Timeout: sendTimeout},
		queue:  make(chan Event, queueSize),
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < workerCount; i++ {
		go s.worker(ctx)
	}
	zap.L().Info("notifier started", zap.String("url", s.url))
}

func (s *Service) Notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case s.queue <- event:
	default:
		zap.L().Warn("notification queue full, dropping event",
			zap.String("kind", event.Kind), zap.String("reference", event.ReferenceID))
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.queue:
			s.send(ctx, event)
		}
	}
}

func (s *Service) send(ctx context.Context, event Event) {
	if s.url == "" {
		zap.L().Debug("state transition",
			zap.String("kind", event.Kind), zap.String("reference", event.ReferenceID))
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("can't marshal notification", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		zap.L().Error("can't build notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Warn("notification delivery failed",
			zap.String("kind", event.Kind), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		zap.L().Warn("notification rejected by receiver",
			zap.String("kind", event.Kind), zap.Int("status", resp.StatusCode))
	}
}
