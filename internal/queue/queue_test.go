package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
)

func TestEventMessageValidate(t *testing.T) {
	t.Parallel()

	valid := EventMessage{
		EventID:    "evt-1",
		EventType:  domain.EventClaimApproved,
		Payload:    json.RawMessage(`{"claimId":"c-1"}`),
		OccurredAt: time.Now().UTC(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(m *EventMessage)
	}{
		{name: "missing event id", mutate: func(m *EventMessage) { m.EventID = "  " }},
		{name: "invalid event type", mutate: func(m *EventMessage) { m.EventType = "MEMBER_POKED" }},
		{name: "missing payload", mutate: func(m *EventMessage) { m.Payload = nil }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := valid
			tt.mutate(&msg)
			if err := msg.Validate(); err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
		})
	}
}

func TestEventMessageJSONRoundTrip(t *testing.T) {
	t.Parallel()

	msg := EventMessage{
		EventID:    "evt-2",
		EventType:  domain.EventPaymentSuccess,
		Payload:    json.RawMessage(`{"amount":770000}`),
		DeliveryID: "del-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() unexpected error = %v", err)
	}

	var decoded EventMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() unexpected error = %v", err)
	}

	if decoded.EventID != msg.EventID || decoded.EventType != msg.EventType || decoded.DeliveryID != msg.DeliveryID {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
	if string(decoded.Payload) != string(msg.Payload) {
		t.Fatalf("payload = %s, want %s", decoded.Payload, msg.Payload)
	}
}
