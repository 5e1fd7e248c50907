package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/queue"
	"go.uber.org/zap"
)

func TestDeliveryScannerReEnqueuesDue(t *testing.T) {
	t.Parallel()

	due := []domain.Delivery{
		{ID: "del-1", SubscriptionID: "sub-1", EventType: domain.EventClaimApproved, Payload: `{"claimId":"c1"}`, Status: domain.DeliveryStatusRetrying, AttemptCount: 1},
		{ID: "del-2", SubscriptionID: "sub-2", EventType: domain.EventClaimDisbursed, Payload: `{"claimId":"c2"}`, Status: domain.DeliveryStatusRetrying, AttemptCount: 2},
	}

	leased := map[string]time.Time{}
	deliveries := &fakeDeliveryRepo{
		getDueForRetryFunc: func(ctx context.Context, limit int) ([]domain.Delivery, error) {
			return due, nil
		},
		markRetryingFunc: func(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error {
			leased[id] = nextRetryAt
			return nil
		},
	}
	publisher := &fakePublisher{}

	s := NewDeliveryScanner(deliveries, publisher, zap.NewNop())
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}

	if len(publisher.published) != 2 {
		t.Fatalf("published = %d messages, want 2", len(publisher.published))
	}
	for i, msg := range publisher.published {
		if msg.DeliveryID != due[i].ID {
			t.Errorf("message %d deliveryId = %q, want %q", i, msg.DeliveryID, due[i].ID)
		}
		if msg.EventType != due[i].EventType {
			t.Errorf("message %d eventType = %s, want %s", i, msg.EventType, due[i].EventType)
		}
		if string(msg.Payload) != due[i].Payload {
			t.Errorf("message %d payload = %s, want original", i, msg.Payload)
		}
	}

	for _, d := range due {
		lease, ok := leased[d.ID]
		if !ok {
			t.Errorf("delivery %s was not leased after re-enqueue", d.ID)
			continue
		}
		if !lease.After(now) {
			t.Errorf("lease for %s = %v, want after now", d.ID, lease)
		}
	}
}

func TestDeliveryScannerSkipsLeaseOnPublishFailure(t *testing.T) {
	t.Parallel()

	deliveries := &fakeDeliveryRepo{
		getDueForRetryFunc: func(ctx context.Context, limit int) ([]domain.Delivery, error) {
			return []domain.Delivery{
				{ID: "del-1", EventType: domain.EventClaimApproved, Payload: `{}`, Status: domain.DeliveryStatusRetrying},
			}, nil
		},
		markRetryingFunc: func(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error {
			t.Error("must not lease a delivery that failed to publish")
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFunc: func(ctx context.Context, queueName string, msg queue.EventMessage) error {
			return errors.New("broker unavailable")
		},
	}

	s := NewDeliveryScanner(deliveries, publisher, zap.NewNop())
	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}
}

func TestDeliveryScannerNoDue(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{}
	s := NewDeliveryScanner(&fakeDeliveryRepo{}, publisher, zap.NewNop())

	if err := s.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}
	if len(publisher.published) != 0 {
		t.Errorf("published %d messages with nothing due", len(publisher.published))
	}
}
