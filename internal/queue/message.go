package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
)

// EventMessage is the broker payload for one domain event. DeliveryID is
// set only when a stranded delivery is being re-enqueued: workers then
// resume that record for its subscription instead of fanning out again.
type EventMessage struct {
	EventID       string           `json:"eventId"`
	CorrelationID string           `json:"correlationId,omitempty"`
	EventType     domain.EventType `json:"eventType"`
	Payload       json.RawMessage  `json:"payload"`
	DeliveryID    string           `json:"deliveryId,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

func (m EventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if !m.EventType.IsValid() {
		return fmt.Errorf("invalid event type %q", m.EventType)
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	return nil
}
