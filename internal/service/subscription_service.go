package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/repository"
	"go.uber.org/zap"
)

const secretByteLength = 32

// SubscriptionService manages webhook registrations. The signing secret
// is generated here from a cryptographically secure source and is only
// ever returned from Register.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	logger        *zap.Logger
}

func NewSubscriptionService(subscriptions repository.SubscriptionRepository, logger *zap.Logger) (*SubscriptionService, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionService{
		subscriptions: subscriptions,
		logger:        logger,
	}, nil
}

// Register creates a subscription and returns it with the secret set.
// Callers must surface the secret once and never again.
func (s *SubscriptionService) Register(ctx context.Context, url string, events []domain.EventType, retryCount int, timeoutSeconds int) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if retryCount == 0 {
		retryCount = domain.DefaultRetryCount
	}
	if timeoutSeconds == 0 {
		timeoutSeconds = domain.DefaultTimeoutSeconds
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}

	sub := &domain.Subscription{
		ID:             uuid.NewString(),
		URL:            strings.TrimSpace(url),
		Secret:         secret,
		Events:         events,
		Active:         true,
		RetryCount:     retryCount,
		TimeoutSeconds: timeoutSeconds,
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("webhook subscription registered",
		zap.String("subscriptionId", sub.ID),
		zap.Int("events", len(sub.Events)),
	)

	return sub, nil
}

func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return s.subscriptions.GetByID(ctx, strings.TrimSpace(id))
}

func (s *SubscriptionService) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.subscriptions.List(ctx)
}

// Unregister hard-deletes a subscription. Delivery records are kept.
func (s *SubscriptionService) Unregister(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return s.subscriptions.Delete(ctx, strings.TrimSpace(id))
}

func generateSecret() (string, error) {
	buf := make([]byte, secretByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
