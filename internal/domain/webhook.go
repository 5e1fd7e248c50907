package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EventType identifies a domain event subscribers can register for.
type EventType string

const (
	EventClaimSubmitted EventType = "CLAIM_SUBMITTED"
	EventClaimApproved  EventType = "CLAIM_APPROVED"
	EventClaimRejected  EventType = "CLAIM_REJECTED"
	EventClaimDisbursed EventType = "CLAIM_DISBURSED"
	EventClaimCancelled EventType = "CLAIM_CANCELLED"
	EventPaymentSuccess EventType = "PAYMENT_SUCCESS"
	EventPaymentFailed  EventType = "PAYMENT_FAILED"
)

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventClaimSubmitted, EventClaimApproved, EventClaimRejected,
		EventClaimDisbursed, EventClaimCancelled, EventPaymentSuccess, EventPaymentFailed:
		return true
	}
	return false
}

func ParseEventTypeFromString(s string) (EventType, error) {
	e := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("%w: invalid event type %q", ErrValidation, s)
	}
	return e, nil
}

// Subscription auto-disable and delivery policy bounds.
const (
	MaxConsecutiveFailures = 10
	MinRetryCount          = 1
	MaxRetryCount          = 10
	DefaultRetryCount      = 3
	MinTimeoutSeconds      = 1
	MaxTimeoutSeconds      = 60
	DefaultTimeoutSeconds  = 10
)

// Subscription is a registered webhook endpoint. The secret is generated
// server-side at registration and returned to the caller exactly once.
type Subscription struct {
	ID              string      `gorm:"type:uuid;primaryKey"`
	URL             string      `gorm:"type:varchar(2048);not null"`
	Secret          string      `gorm:"type:varchar(128);not null"`
	Events          []EventType `gorm:"type:text;serializer:json"`
	Active          bool        `gorm:"not null;default:true"`
	RetryCount      int         `gorm:"not null;default:3"`
	TimeoutSeconds  int         `gorm:"not null;default:10"`
	FailureCount    int         `gorm:"not null;default:0"`
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Subscription) Validate() error {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(s.URL))
	if err != nil {
		return fmt.Errorf("%w: invalid webhook url: %v", ErrValidation, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: webhook url must use https", ErrValidation)
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("%w: at least one event type is required", ErrValidation)
	}
	for _, e := range s.Events {
		if !e.IsValid() {
			return fmt.Errorf("%w: invalid event type %q", ErrValidation, e)
		}
	}
	if s.RetryCount < MinRetryCount || s.RetryCount > MaxRetryCount {
		return fmt.Errorf("%w: retryCount must be between %d and %d", ErrValidation, MinRetryCount, MaxRetryCount)
	}
	if s.TimeoutSeconds < MinTimeoutSeconds || s.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: timeoutSeconds must be between %d and %d", ErrValidation, MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	return nil
}

// RegisterFailure counts one exhausted delivery batch against the
// subscription and deactivates it once MaxConsecutiveFailures is
// reached. It reports whether this call disabled the subscription.
func (s *Subscription) RegisterFailure() bool {
	s.FailureCount++
	if s.Active && s.FailureCount >= MaxConsecutiveFailures {
		s.Active = false
		return true
	}
	return false
}

// RegisterSuccess resets the consecutive-failure counter. A single
// successful delivery wipes any accumulated failures.
func (s *Subscription) RegisterSuccess() {
	s.FailureCount = 0
}

// SubscribedTo reports whether the subscription listens for the event.
func (s *Subscription) SubscribedTo(event EventType) bool {
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// DeliveryStatus represents the outcome of one delivery attempt batch.
type DeliveryStatus string

const (
	DeliveryStatusRetrying  DeliveryStatus = "RETRYING"
	DeliveryStatusSuccess   DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
	DeliveryStatusCancelled DeliveryStatus = "CANCELLED"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusRetrying, DeliveryStatusSuccess, DeliveryStatusFailed, DeliveryStatusCancelled:
		return true
	}
	return false
}

func ParseDeliveryStatusFromString(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}

// IsFinal reports whether the record may no longer be updated.
func (s DeliveryStatus) IsFinal() bool {
	return s == DeliveryStatusSuccess || s == DeliveryStatusFailed || s == DeliveryStatusCancelled
}

// Delivery records one attempt batch for a subscription: the retry loop
// runs to completion under a single record, with AttemptCount tracking
// the individual POSTs.
type Delivery struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	SubscriptionID string         `gorm:"type:uuid;not null"`
	EventType      EventType      `gorm:"type:varchar(40);not null"`
	Payload        string         `gorm:"type:text;not null"`
	Status         DeliveryStatus `gorm:"type:varchar(20);not null"`
	AttemptCount   int            `gorm:"not null;default:0"`
	ResponseStatus *int           `gorm:"type:int"`
	ResponseBody   *string        `gorm:"type:text"`
	Error          *string        `gorm:"type:text"`
	DurationMillis int64          `gorm:"not null;default:0"`
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
