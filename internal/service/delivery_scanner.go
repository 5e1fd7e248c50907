package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pensionio/backoffice/internal/queue"
	"github.com/pensionio/backoffice/internal/repository"
)

const (
	scanInterval  = 30 * time.Second
	scanBatchSize = 100
	// scanLease pushes next_retry_at forward so a delivery is not
	// re-enqueued by the next tick while a worker is still on it.
	scanLease = 2 * time.Minute
)

// DeliveryScanner re-enqueues deliveries whose retry window has elapsed.
// It picks up both scheduled backoff retries and deliveries stranded in
// RETRYING by a crashed worker.
type DeliveryScanner struct {
	deliveries repository.DeliveryRepository
	publisher  queue.Publisher
	logger     *zap.Logger

	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewDeliveryScanner(deliveries repository.DeliveryRepository, publisher queue.Publisher, logger *zap.Logger) *DeliveryScanner {
	return &DeliveryScanner{
		deliveries: deliveries,
		publisher:  publisher,
		logger:     logger,
		interval:   scanInterval,
		batchSize:  scanBatchSize,
		now:        time.Now,
	}
}

// Start blocks until ctx is cancelled, scanning on a fixed ticker.
func (s *DeliveryScanner) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("delivery scanner started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("delivery scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				s.logger.Error("delivery scan failed", zap.Error(err))
			}
		}
	}
}

func (s *DeliveryScanner) scanDue(ctx context.Context) error {
	due, err := s.deliveries.GetDueForRetry(ctx, s.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("re-enqueueing due deliveries", zap.Int("count", len(due)))

	for _, delivery := range due {
		msg := queue.EventMessage{
			EventID:    uuid.NewString(),
			EventType:  delivery.EventType,
			Payload:    []byte(delivery.Payload),
			DeliveryID: delivery.ID,
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, queue.DispatchQueue, msg); err != nil {
			s.logger.Error("failed to re-enqueue delivery",
				zap.String("delivery_id", delivery.ID),
				zap.Error(err))
			continue
		}
		// Lease the row so subsequent ticks skip it while in flight.
		if err := s.deliveries.MarkRetrying(ctx, delivery.ID, delivery.AttemptCount, s.now().Add(scanLease)); err != nil {
			s.logger.Warn("failed to lease delivery",
				zap.String("delivery_id", delivery.ID),
				zap.Error(err))
		}
	}
	return nil
}
