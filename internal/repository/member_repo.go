package repository

import (
	"context"
	"errors"

	"github.com/pensionio/backoffice/internal/domain"
	"gorm.io/gorm"
)

// MemberRepository is the read/update surface the claim flow needs from
// the member registry. Full member CRUD lives outside this service.
type MemberRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	SetStatus(ctx context.Context, id string, status domain.MemberStatus) error
}

// ContributionRepository provides contribution totals for eligibility and
// payout calculation.
type ContributionRepository interface {
	TotalByMemberAndType(ctx context.Context, memberID string, contributionType domain.ContributionType) (float64, error)
	CountByMember(ctx context.Context, memberID string) (int64, error)
}

type GormMemberRepo struct {
	db *gorm.DB
}

func NewGormMemberRepo(db *gorm.DB) *GormMemberRepo {
	return &GormMemberRepo{db: db}
}

func (r *GormMemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	var model MemberModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return memberModelToDomain(&model), nil
}

func (r *GormMemberRepo) SetStatus(ctx context.Context, id string, status domain.MemberStatus) error {
	result := r.db.WithContext(ctx).
		Model(&MemberModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type GormContributionRepo struct {
	db *gorm.DB
}

func NewGormContributionRepo(db *gorm.DB) *GormContributionRepo {
	return &GormContributionRepo{db: db}
}

func (r *GormContributionRepo) TotalByMemberAndType(ctx context.Context, memberID string, contributionType domain.ContributionType) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&ContributionModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ? AND type = ?", memberID, contributionType).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormContributionRepo) CountByMember(ctx context.Context, memberID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ContributionModel{}).
		Where("member_id = ?", memberID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
