package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/observability"
	"go.uber.org/zap"
)

func TestQueueEventEmitterCarriesCorrelationID(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{}
	emitter := NewQueueEventEmitter(publisher, zap.NewNop())

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	emitter.Emit(ctx, domain.EventClaimApproved, ClaimEventPayload{
		ClaimID:       "claim-1",
		CorrelationID: "corr-1",
	})

	if len(publisher.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(publisher.published))
	}
	msg := publisher.published[0]
	if msg.CorrelationID != "corr-1" {
		t.Errorf("message correlationId = %q, want the request's corr-1", msg.CorrelationID)
	}

	var payload ClaimEventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error = %v", err)
	}
	if payload.CorrelationID != "corr-1" {
		t.Errorf("payload correlationId = %q, want corr-1", payload.CorrelationID)
	}
}

func TestQueueEventEmitterGeneratesCorrelationID(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{}
	emitter := NewQueueEventEmitter(publisher, zap.NewNop())

	emitter.Emit(context.Background(), domain.EventClaimSubmitted, ClaimEventPayload{ClaimID: "claim-1"})

	if len(publisher.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(publisher.published))
	}
	msg := publisher.published[0]
	if msg.CorrelationID == "" {
		t.Error("emitter must stamp a correlation id when the context has none")
	}
	if msg.CorrelationID == msg.EventID {
		t.Error("correlation id must be distinct from the event id")
	}
}
