package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pensionio/backoffice/internal/domain"
	"gorm.io/gorm"
)

type DeliveryListParams struct {
	Status   *domain.DeliveryStatus
	Page     int
	PageSize int
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	ListBySubscription(ctx context.Context, subscriptionID string, params DeliveryListParams) ([]domain.Delivery, int64, error)
	// Finalize moves a RETRYING delivery to a final status with its
	// outcome fields. Records already final are left untouched.
	Finalize(ctx context.Context, d *domain.Delivery) error
	// MarkRetrying updates attempt bookkeeping while the batch is still
	// in flight.
	MarkRetrying(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error
	// GetDueForRetry returns RETRYING deliveries whose next retry time
	// has passed, oldest first.
	GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	model := deliveryModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) ListBySubscription(ctx context.Context, subscriptionID string, params DeliveryListParams) ([]domain.Delivery, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("subscription_id = ?", subscriptionID)

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DeliveryModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	deliveries := make([]domain.Delivery, 0, len(models))
	for i := range models {
		deliveries = append(deliveries, *deliveryModelToDomain(&models[i]))
	}

	return deliveries, total, nil
}

func (r *GormDeliveryRepo) Finalize(ctx context.Context, d *domain.Delivery) error {
	if d == nil {
		return fmt.Errorf("delivery is required")
	}
	if !d.Status.IsFinal() {
		return fmt.Errorf("%w: finalize requires a final status, got %s", domain.ErrValidation, d.Status)
	}

	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ? AND status = ?", d.ID, domain.DeliveryStatusRetrying).
		Updates(map[string]any{
			"status":          d.Status,
			"attempt_count":   d.AttemptCount,
			"response_status": d.ResponseStatus,
			"response_body":   d.ResponseBody,
			"error":           d.Error,
			"duration_millis": d.DurationMillis,
			"next_retry_at":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormDeliveryRepo) MarkRetrying(ctx context.Context, id string, attemptCount int, nextRetryAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ? AND status = ?", id, domain.DeliveryStatusRetrying).
		Updates(map[string]any{
			"attempt_count": attemptCount,
			"next_retry_at": nextRetryAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormDeliveryRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error) {
	var models []DeliveryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", domain.DeliveryStatusRetrying, time.Now()).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]domain.Delivery, 0, len(models))
	for i := range models {
		deliveries = append(deliveries, *deliveryModelToDomain(&models[i]))
	}

	return deliveries, nil
}
