package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pensionio/backoffice/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Index names referenced when classifying unique violations.
const (
	activeClaimIndexName    = "idx_claims_one_active_per_member"
	claimReferenceIndexName = "idx_claims_reference_number"

	uniqueViolationCode = "23505"
)

type ClaimListParams struct {
	MemberID    *string
	Status      *domain.ClaimStatus
	BenefitType *domain.BenefitType
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

type ClaimRepository interface {
	// Create inserts a new claim. A violation of the one-active-claim-
	// per-member partial unique index surfaces as ErrDuplicateClaim; a
	// reference number collision surfaces as ErrConflict so the caller
	// can regenerate and retry.
	Create(ctx context.Context, c *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	GetByReference(ctx context.Context, reference string) (*domain.Claim, error)
	List(ctx context.Context, params ClaimListParams) ([]domain.Claim, int64, error)
	// UpdateLocked loads the claim under a row lock, applies mutate, and
	// persists the result in the same transaction. Transition checks run
	// inside mutate so concurrent updates serialize per claim.
	UpdateLocked(ctx context.Context, id string, mutate func(c *domain.Claim) error) (*domain.Claim, error)
}

type GormClaimRepo struct {
	db *gorm.DB
}

func NewGormClaimRepo(db *gorm.DB) *GormClaimRepo {
	return &GormClaimRepo{db: db}
}

func (r *GormClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	model := claimModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classifyClaimCreateError(err)
	}
	if c != nil {
		*c = *claimModelToDomain(model)
	}
	return nil
}

func (r *GormClaimRepo) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	var model ClaimModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return claimModelToDomain(&model), nil
}

func (r *GormClaimRepo) GetByReference(ctx context.Context, reference string) (*domain.Claim, error) {
	var model ClaimModel
	err := r.db.WithContext(ctx).First(&model, "reference_number = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return claimModelToDomain(&model), nil
}

func (r *GormClaimRepo) List(ctx context.Context, params ClaimListParams) ([]domain.Claim, int64, error) {
	query := r.db.WithContext(ctx).Model(&ClaimModel{})

	if params.MemberID != nil {
		query = query.Where("member_id = ?", *params.MemberID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BenefitType != nil {
		query = query.Where("benefit_type = ?", *params.BenefitType)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
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

	var models []ClaimModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	claims := make([]domain.Claim, 0, len(models))
	for i := range models {
		claims = append(claims, *claimModelToDomain(&models[i]))
	}

	return claims, total, nil
}

func (r *GormClaimRepo) UpdateLocked(ctx context.Context, id string, mutate func(c *domain.Claim) error) (*domain.Claim, error) {
	var updated *domain.Claim

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ClaimModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		claim := claimModelToDomain(&model)
		if err := mutate(claim); err != nil {
			return err
		}

		next := claimModelFromDomain(claim)
		if err := tx.Save(next).Error; err != nil {
			return err
		}

		updated = claimModelToDomain(next)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func classifyClaimCreateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case activeClaimIndexName:
			return fmt.Errorf("%w: member already has an active claim", domain.ErrDuplicateClaim)
		case claimReferenceIndexName:
			return fmt.Errorf("%w: claim reference number collision", domain.ErrConflict)
		default:
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
