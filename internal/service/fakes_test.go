package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/queue"
	"github.com/pensionio/backoffice/internal/repository"
	"github.com/pensionio/backoffice/internal/sender"
)

type fakeClaimRepo struct {
	createFunc         func(ctx context.Context, c *domain.Claim) error
	getByIDFunc        func(ctx context.Context, id string) (*domain.Claim, error)
	getByReferenceFunc func(ctx context.Context, reference string) (*domain.Claim, error)
	listFunc           func(ctx context.Context, params repository.ClaimListParams) ([]domain.Claim, int64, error)
	updateLockedFunc   func(ctx context.Context, id string, mutate func(c *domain.Claim) error) (*domain.Claim, error)
}

func (f *fakeClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, c)
	}
	return nil
}

func (f *fakeClaimRepo) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeClaimRepo) GetByReference(ctx context.Context, reference string) (*domain.Claim, error) {
	if f.getByReferenceFunc != nil {
		return f.getByReferenceFunc(ctx, reference)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeClaimRepo) List(ctx context.Context, params repository.ClaimListParams) ([]domain.Claim, int64, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeClaimRepo) UpdateLocked(ctx context.Context, id string, mutate func(c *domain.Claim) error) (*domain.Claim, error) {
	if f.updateLockedFunc != nil {
		return f.updateLockedFunc(ctx, id, mutate)
	}
	return nil, domain.ErrNotFound
}

// lockedClaimRepo serves UpdateLocked from a single in-memory claim, the
// way the row-locked transaction does.
func lockedClaimRepo(claim *domain.Claim) *fakeClaimRepo {
	return &fakeClaimRepo{
		updateLockedFunc: func(ctx context.Context, id string, mutate func(c *domain.Claim) error) (*domain.Claim, error) {
			if claim == nil || claim.ID != id {
				return nil, fmt.Errorf("%w: claim not found", domain.ErrNotFound)
			}
			if err := mutate(claim); err != nil {
				return nil, err
			}
			return claim, nil
		},
	}
}

type fakeMemberRepo struct {
	getByIDFunc   func(ctx context.Context, id string) (*domain.Member, error)
	setStatusFunc func(ctx context.Context, id string, status domain.MemberStatus) error
}

func (f *fakeMemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMemberRepo) SetStatus(ctx context.Context, id string, status domain.MemberStatus) error {
	if f.setStatusFunc != nil {
		return f.setStatusFunc(ctx, id, status)
	}
	return nil
}

type fakeContributionRepo struct {
	totals map[domain.ContributionType]float64
	count  int64
	err    error
}

func (f *fakeContributionRepo) TotalByMemberAndType(ctx context.Context, memberID string, contributionType domain.ContributionType) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.totals[contributionType], nil
}

func (f *fakeContributionRepo) CountByMember(ctx context.Context, memberID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

type fakeSubscriptionRepo struct {
	createFunc             func(ctx context.Context, s *domain.Subscription) error
	getByIDFunc            func(ctx context.Context, id string) (*domain.Subscription, error)
	listFunc               func(ctx context.Context) ([]domain.Subscription, error)
	listActiveForEventFunc func(ctx context.Context, event domain.EventType) ([]domain.Subscription, error)
	deleteFunc             func(ctx context.Context, id string) error
	recordSuccessFunc      func(ctx context.Context, id string, at time.Time) error
	recordFailureFunc      func(ctx context.Context, id string, at time.Time) (*domain.Subscription, bool, error)
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, s)
	}
	return nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSubscriptionRepo) List(ctx context.Context) ([]domain.Subscription, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) ListActiveForEvent(ctx context.Context, event domain.EventType) ([]domain.Subscription, error) {
	if f.listActiveForEventFunc != nil {
		return f.listActiveForEventFunc(ctx, event)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, id)
	}
	return nil
}

func (f *fakeSubscriptionRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	if f.recordSuccessFunc != nil {
		return f.recordSuccessFunc(ctx, id, at)
	}
	return nil
}

func (f *fakeSubscriptionRepo) RecordFailure(ctx context.Context, id string, at time.Time) (*domain.Subscription, bool, error) {
	if f.recordFailureFunc != nil {
		return f.recordFailureFunc(ctx, id, at)
	}
	return &domain.Subscription{ID: id, FailureCount: 1, Active: true}, false, nil
}

type fakeDeliveryRepo struct {
	createFunc             func(ctx context.Context, d *domain.Delivery) error
	getByIDFunc            func(ctx context.Context, id string) (*domain.Delivery, error)
	listBySubscriptionFunc func(ctx context.Context, subscriptionID string, params repository.DeliveryListParams) ([]domain.Delivery, int64, error)
	finalizeFunc           func(ctx context.Context, d *domain.Delivery) error
	markRetryingFunc       func(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error
	getDueForRetryFunc     func(ctx context.Context, limit int) ([]domain.Delivery, error)
}

func (f *fakeDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, d)
	}
	return nil
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) ListBySubscription(ctx context.Context, subscriptionID string, params repository.DeliveryListParams) ([]domain.Delivery, int64, error) {
	if f.listBySubscriptionFunc != nil {
		return f.listBySubscriptionFunc(ctx, subscriptionID, params)
	}
	return nil, 0, nil
}

func (f *fakeDeliveryRepo) Finalize(ctx context.Context, d *domain.Delivery) error {
	if f.finalizeFunc != nil {
		return f.finalizeFunc(ctx, d)
	}
	return nil
}

func (f *fakeDeliveryRepo) MarkRetrying(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error {
	if f.markRetryingFunc != nil {
		return f.markRetryingFunc(ctx, id, attemptCount, nextRetryAt)
	}
	return nil
}

func (f *fakeDeliveryRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error) {
	if f.getDueForRetryFunc != nil {
		return f.getDueForRetryFunc(ctx, limit)
	}
	return nil, nil
}

type fakeSender struct {
	postFunc func(ctx context.Context, req sender.Request) (*sender.Response, error)
}

func (f *fakeSender) Post(ctx context.Context, req sender.Request) (*sender.Response, error) {
	if f.postFunc != nil {
		return f.postFunc(ctx, req)
	}
	return &sender.Response{StatusCode: 200}, nil
}

type fakePublisher struct {
	publishFunc func(ctx context.Context, queueName string, msg queue.EventMessage) error
	published   []queue.EventMessage
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.EventMessage) error {
	if f.publishFunc != nil {
		return f.publishFunc(ctx, queueName, msg)
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFunc func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFunc != nil {
		return f.consumeFunc(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type recordingEmitter struct {
	events []domain.EventType
}

func (r *recordingEmitter) Emit(ctx context.Context, eventType domain.EventType, payload any) {
	r.events = append(r.events, eventType)
}
