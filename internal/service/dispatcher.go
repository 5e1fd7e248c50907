package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/observability"
	"github.com/pensionio/backoffice/internal/queue"
	"github.com/pensionio/backoffice/internal/ratelimit"
	"github.com/pensionio/backoffice/internal/repository"
	"github.com/pensionio/backoffice/internal/sender"
	"github.com/pensionio/backoffice/internal/signature"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDispatcherConcurrency = 1
	// retryBackoff is the fixed wait between attempts within one
	// delivery batch.
	retryBackoff = 5 * time.Second
)

// Dispatcher consumes domain events and fans them out to webhook
// subscribers. Each subscriber's bounded retry loop runs to completion
// under a single delivery record; subscribers are processed concurrently
// with no ordering guarantee between them.
type Dispatcher struct {
	subscriptions repository.SubscriptionRepository
	deliveries    repository.DeliveryRepository
	consumer      queue.Consumer
	sender        sender.Sender
	rateLimiter   ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	backoff       time.Duration
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	subscriptions repository.SubscriptionRepository,
	deliveries repository.DeliveryRepository,
	consumer queue.Consumer,
	snd sender.Sender,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if snd == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if concurrency < minDispatcherConcurrency {
		concurrency = minDispatcherConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		subscriptions: subscriptions,
		deliveries:    deliveries,
		consumer:      consumer,
		sender:        snd,
		rateLimiter:   rateLimiter,
		logger:        logger,
		concurrency:   concurrency,
		backoff:       retryBackoff,
		now:           time.Now,
		sleep:         sleepWithContext,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Start consumes the dispatch queue until context cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < d.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			d.logger.Info("dispatcher worker started", zap.Int("workerId", workerID))

			err := d.consumer.Consume(groupCtx, queue.DispatchQueue, d.processMessage)
			if err != nil {
				d.logger.Error("dispatcher worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			d.logger.Info("dispatcher worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// processMessage fans an event out to its subscribers, or resumes one
// stranded delivery when the message carries a delivery id.
func (d *Dispatcher) processMessage(ctx context.Context, msg queue.EventMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}

	if msg.DeliveryID != "" {
		return d.resumeDelivery(ctx, msg)
	}

	subs, err := d.subscriptions.ListActiveForEvent(ctx, msg.EventType)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions for event: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range subs {
		sub := subs[i]
		g.Go(func() error {
			return d.deliverToSubscription(groupCtx, sub, msg, nil)
		})
	}

	return g.Wait()
}

func (d *Dispatcher) resumeDelivery(ctx context.Context, msg queue.EventMessage) error {
	delivery, err := d.deliveries.GetByID(ctx, msg.DeliveryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("stranded delivery no longer exists, skipping",
				zap.String("deliveryId", msg.DeliveryID),
			)
			return nil
		}
		return fmt.Errorf("failed to load delivery for resume: %w", err)
	}
	if delivery.Status.IsFinal() {
		return nil
	}

	sub, err := d.subscriptions.GetByID(ctx, delivery.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Subscription was unregistered while the delivery was in
			// flight; close out the record.
			delivery.Status = domain.DeliveryStatusCancelled
			errMsg := "subscription no longer exists"
			delivery.Error = &errMsg
			if finalizeErr := d.deliveries.Finalize(ctx, delivery); finalizeErr != nil && !errors.Is(finalizeErr, domain.ErrConflict) {
				return finalizeErr
			}
			return nil
		}
		return fmt.Errorf("failed to load subscription for resume: %w", err)
	}

	return d.deliverToSubscription(ctx, *sub, msg, delivery)
}

// deliverToSubscription runs one bounded retry loop for one subscriber.
// Delivery failures are recorded and swallowed; only infrastructure
// errors (repo writes) propagate so the broker redelivers.
func (d *Dispatcher) deliverToSubscription(ctx context.Context, sub domain.Subscription, msg queue.EventMessage, resumed *domain.Delivery) error {
	if !sub.Active {
		return nil
	}

	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, hostKey(sub.URL)); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	delivery := resumed
	if delivery == nil {
		delivery = &domain.Delivery{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			EventType:      msg.EventType,
			Payload:        string(msg.Payload),
			Status:         domain.DeliveryStatusRetrying,
		}
		if err := d.deliveries.Create(ctx, delivery); err != nil {
			return fmt.Errorf("failed to create delivery record: %w", err)
		}
	}

	sig, err := signature.Sign([]byte(delivery.Payload), sub.Secret)
	if err != nil {
		// Bad key material is fatal to this delivery only.
		observability.WithContextLogger(d.logger, ctx).Error("failed to sign webhook payload",
			zap.String("subscriptionId", sub.ID),
			zap.String("deliveryId", delivery.ID),
			zap.Error(err),
		)
		return d.concludeFailure(ctx, &sub, delivery, fmt.Sprintf("signature: %v", err), nil)
	}

	maxAttempts := sub.RetryCount
	if maxAttempts < domain.MinRetryCount {
		maxAttempts = domain.DefaultRetryCount
	}
	timeout := time.Duration(sub.TimeoutSeconds) * time.Second

	start := d.now()
	var lastErr error
	var lastStatus *int

	for delivery.AttemptCount < maxAttempts {
		delivery.AttemptCount++

		attemptStart := d.now()
		resp, sendErr := d.sender.Post(ctx, sender.Request{
			URL:       sub.URL,
			EventType: delivery.EventType.String(),
			Signature: sig,
			Body:      []byte(delivery.Payload),
			Timeout:   timeout,
		})
		if d.metrics != nil {
			d.metrics.ObserveDeliveryAttemptDuration(d.now().Sub(attemptStart))
		}

		if sendErr == nil {
			delivery.DurationMillis = d.now().Sub(start).Milliseconds()
			return d.concludeSuccess(ctx, &sub, delivery, resp)
		}

		lastErr = sendErr
		if code := sender.StatusCode(sendErr); code > 0 {
			lastStatus = &code
		} else {
			lastStatus = nil
		}

		if delivery.AttemptCount >= maxAttempts {
			break
		}

		// Lease the row past the backoff plus the next attempt's
		// worst-case POST; otherwise the scanner would see it as due
		// while that attempt is still in flight and re-enqueue it,
		// duplicating the delivery.
		nextRetryAt := d.now().Add(d.backoff + timeout)
		if err := d.deliveries.MarkRetrying(ctx, delivery.ID, delivery.AttemptCount, nextRetryAt); err != nil {
			return fmt.Errorf("failed to update delivery between attempts: %w", err)
		}
		if err := d.sleep(ctx, d.backoff); err != nil {
			// Shutdown mid-batch: the scanner will resume this record.
			return nil
		}
	}

	delivery.DurationMillis = d.now().Sub(start).Milliseconds()
	// lastErr is nil when a resumed record arrives with its attempt
	// budget already spent, so the loop body never ran.
	errMsg := "retry budget exhausted"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	return d.concludeFailure(ctx, &sub, delivery, errMsg, lastStatus)
}

func (d *Dispatcher) concludeSuccess(ctx context.Context, sub *domain.Subscription, delivery *domain.Delivery, resp *sender.Response) error {
	delivery.Status = domain.DeliveryStatusSuccess
	if resp != nil {
		status := resp.StatusCode
		delivery.ResponseStatus = &status
		if body := strings.TrimSpace(resp.Body); body != "" {
			delivery.ResponseBody = &body
		}
	}

	if err := d.deliveries.Finalize(ctx, delivery); err != nil {
		return fmt.Errorf("failed to finalize delivery: %w", err)
	}
	if err := d.subscriptions.RecordSuccess(ctx, sub.ID, d.now().UTC()); err != nil {
		return fmt.Errorf("failed to record delivery success: %w", err)
	}

	if d.metrics != nil {
		d.metrics.IncDeliveryCompleted("success")
	}
	return nil
}

func (d *Dispatcher) concludeFailure(ctx context.Context, sub *domain.Subscription, delivery *domain.Delivery, errMsg string, statusCode *int) error {
	delivery.Status = domain.DeliveryStatusFailed
	delivery.Error = &errMsg
	delivery.ResponseStatus = statusCode

	if err := d.deliveries.Finalize(ctx, delivery); err != nil {
		return fmt.Errorf("failed to finalize delivery: %w", err)
	}

	updated, disabled, err := d.subscriptions.RecordFailure(ctx, sub.ID, d.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to record delivery failure: %w", err)
	}

	if d.metrics != nil {
		d.metrics.IncDeliveryCompleted("failed")
	}

	if disabled {
		observability.WithContextLogger(d.logger, ctx).Warn("webhook subscription auto-disabled after consecutive failures",
			zap.String("subscriptionId", sub.ID),
			zap.Int("failureCount", updated.FailureCount),
		)
		if d.metrics != nil {
			d.metrics.IncSubscriptionDisabled()
		}
	}

	return nil
}

func hostKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Host)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
