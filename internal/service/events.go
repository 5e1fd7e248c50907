package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/observability"
	"github.com/pensionio/backoffice/internal/queue"
	"go.uber.org/zap"
)

// EventEmitter is the fire-and-forget port business services use to
// announce domain events. Implementations must never fail the caller.
type EventEmitter interface {
	Emit(ctx context.Context, eventType domain.EventType, payload any)
}

// QueueEventEmitter publishes events to the dispatch queue. Publish
// failures are logged and swallowed: webhook delivery outcome must never
// affect the business operation that produced the event.
type QueueEventEmitter struct {
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewQueueEventEmitter(publisher queue.Publisher, logger *zap.Logger) *QueueEventEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueEventEmitter{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *QueueEventEmitter) Emit(ctx context.Context, eventType domain.EventType, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("failed to marshal event payload",
			zap.String("eventType", eventType.String()),
			zap.Error(err),
		)
		return
	}

	correlationID, ok := observability.CorrelationIDFromContext(ctx)
	if !ok {
		correlationID = uuid.NewString()
	}

	msg := queue.EventMessage{
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		EventType:     eventType,
		Payload:       body,
		OccurredAt:    e.now().UTC(),
	}

	if err := e.publisher.Publish(ctx, queue.DispatchQueue, msg); err != nil {
		e.logger.Error("failed to publish domain event",
			zap.String("eventId", msg.EventID),
			zap.String("correlationId", msg.CorrelationID),
			zap.String("eventType", eventType.String()),
			zap.Error(err),
		)
	}
}
