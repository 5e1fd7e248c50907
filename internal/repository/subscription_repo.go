package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	// ListActiveForEvent returns active subscriptions whose event set
	// contains the given event.
	ListActiveForEvent(ctx context.Context, event domain.EventType) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
	// RecordSuccess resets the failure counter and stamps last-triggered.
	RecordSuccess(ctx context.Context, id string, at time.Time) error
	// RecordFailure increments the failure counter under a row lock,
	// deactivating the subscription once the threshold is reached. It
	// returns the updated subscription and whether this call disabled it.
	RecordFailure(ctx context.Context, id string, at time.Time) (*domain.Subscription, bool, error)
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	model := subscriptionModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *subscriptionModelToDomain(model)
	}
	return nil
}

func (r *GormSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriptionModelToDomain(&model), nil
}

func (r *GormSubscriptionRepo) List(ctx context.Context) ([]domain.Subscription, error) {
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, *subscriptionModelToDomain(&models[i]))
	}
	return subs, nil
}

func (r *GormSubscriptionRepo) ListActiveForEvent(ctx context.Context, event domain.EventType) ([]domain.Subscription, error) {
	// The event set is a JSON-serialized text column; a LIKE prefilter
	// narrows rows and SubscribedTo is the authoritative check.
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND events LIKE ?", true, "%"+event.String()+"%").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(models))
	for i := range models {
		sub := subscriptionModelToDomain(&models[i])
		if sub.SubscribedTo(event) {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (r *GormSubscriptionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&SubscriptionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormSubscriptionRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failure_count":     0,
			"last_triggered_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormSubscriptionRepo) RecordFailure(ctx context.Context, id string, at time.Time) (*domain.Subscription, bool, error) {
	var updated *domain.Subscription
	disabled := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model SubscriptionModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		sub := subscriptionModelToDomain(&model)
		disabled = sub.RegisterFailure()
		sub.LastTriggeredAt = &at

		if err := tx.Save(subscriptionModelFromDomain(sub)).Error; err != nil {
			return err
		}

		updated = sub
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return updated, disabled, nil
}
