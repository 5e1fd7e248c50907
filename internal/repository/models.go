package repository

import (
	"time"

	"github.com/pensionio/backoffice/internal/domain"
)

// ClaimModel is the persistence model for the benefit_claims table.
type ClaimModel struct {
	ID              string             `gorm:"type:uuid;primaryKey"`
	ReferenceNumber string             `gorm:"type:varchar(40);not null"`
	MemberID        string             `gorm:"type:uuid;not null"`
	BenefitType     domain.BenefitType `gorm:"type:varchar(20);not null"`
	Status          domain.ClaimStatus `gorm:"type:varchar(20);not null"`

	TotalContributions    float64 `gorm:"not null;default:0"`
	EmployerContributions float64 `gorm:"not null;default:0"`
	InvestmentReturns     float64 `gorm:"not null;default:0"`
	GrossBenefit          float64 `gorm:"not null;default:0"`
	TaxEstimate           float64 `gorm:"not null;default:0"`
	AdminFeeEstimate      float64 `gorm:"not null;default:0"`
	NetPayable            float64 `gorm:"not null;default:0"`

	PaymentMethod        string  `gorm:"type:varchar(30);not null"`
	PaymentAccountNumber string  `gorm:"type:varchar(64);not null"`
	PaymentBankName      string  `gorm:"type:varchar(120)"`
	Remarks              *string `gorm:"type:text"`
	RejectionReason      *string `gorm:"type:text"`

	AppliedAt   time.Time
	ApprovedAt  *time.Time
	DisbursedAt *time.Time
	ApprovedBy  *string `gorm:"type:varchar(120)"`
	RejectedBy  *string `gorm:"type:varchar(120)"`
	DisbursedBy *string `gorm:"type:varchar(120)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ClaimModel) TableName() string {
	return "benefit_claims"
}

// SubscriptionModel is the persistence model for webhook_subscriptions.
type SubscriptionModel struct {
	ID              string             `gorm:"type:uuid;primaryKey"`
	URL             string             `gorm:"type:varchar(2048);not null"`
	Secret          string             `gorm:"type:varchar(128);not null"`
	Events          []domain.EventType `gorm:"type:text;serializer:json"`
	Active          bool               `gorm:"not null;default:true"`
	RetryCount      int                `gorm:"not null;default:3"`
	TimeoutSeconds  int                `gorm:"not null;default:10"`
	FailureCount    int                `gorm:"not null;default:0"`
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (SubscriptionModel) TableName() string {
	return "webhook_subscriptions"
}

// DeliveryModel is the persistence model for webhook_deliveries.
type DeliveryModel struct {
	ID             string                `gorm:"type:uuid;primaryKey"`
	SubscriptionID string                `gorm:"type:uuid;not null"`
	EventType      domain.EventType      `gorm:"type:varchar(40);not null"`
	Payload        string                `gorm:"type:text;not null"`
	Status         domain.DeliveryStatus `gorm:"type:varchar(20);not null"`
	AttemptCount   int                   `gorm:"not null;default:0"`
	ResponseStatus *int                  `gorm:"type:int"`
	ResponseBody   *string               `gorm:"type:text"`
	Error          *string               `gorm:"type:text"`
	DurationMillis int64                 `gorm:"not null;default:0"`
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// MemberModel is the persistence model for members.
type MemberModel struct {
	ID          string              `gorm:"type:uuid;primaryKey"`
	FullName    string              `gorm:"type:varchar(200);not null"`
	DateOfBirth time.Time           `gorm:"not null"`
	EnrolledAt  time.Time           `gorm:"not null"`
	Status      domain.MemberStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (MemberModel) TableName() string {
	return "members"
}

// ContributionModel is the persistence model for contributions.
type ContributionModel struct {
	ID            string                  `gorm:"type:uuid;primaryKey"`
	MemberID      string                  `gorm:"type:uuid;not null"`
	Type          domain.ContributionType `gorm:"type:varchar(20);not null"`
	Amount        float64                 `gorm:"not null"`
	ContributedAt time.Time               `gorm:"not null"`
	CreatedAt     time.Time
}

func (ContributionModel) TableName() string {
	return "contributions"
}

func claimModelFromDomain(c *domain.Claim) *ClaimModel {
	if c == nil {
		return nil
	}

	return &ClaimModel{
		ID:                    c.ID,
		ReferenceNumber:       c.ReferenceNumber,
		MemberID:              c.MemberID,
		BenefitType:           c.BenefitType,
		Status:                c.Status,
		TotalContributions:    c.TotalContributions,
		EmployerContributions: c.EmployerContributions,
		InvestmentReturns:     c.InvestmentReturns,
		GrossBenefit:          c.GrossBenefit,
		TaxEstimate:           c.TaxEstimate,
		AdminFeeEstimate:      c.AdminFeeEstimate,
		NetPayable:            c.NetPayable,
		PaymentMethod:         c.PaymentMethod,
		PaymentAccountNumber:  c.PaymentAccountNumber,
		PaymentBankName:       c.PaymentBankName,
		Remarks:               c.Remarks,
		RejectionReason:       c.RejectionReason,
		AppliedAt:             c.AppliedAt,
		ApprovedAt:            c.ApprovedAt,
		DisbursedAt:           c.DisbursedAt,
		ApprovedBy:            c.ApprovedBy,
		RejectedBy:            c.RejectedBy,
		DisbursedBy:           c.DisbursedBy,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

func claimModelToDomain(m *ClaimModel) *domain.Claim {
	if m == nil {
		return nil
	}

	return &domain.Claim{
		ID:                    m.ID,
		ReferenceNumber:       m.ReferenceNumber,
		MemberID:              m.MemberID,
		BenefitType:           m.BenefitType,
		Status:                m.Status,
		TotalContributions:    m.TotalContributions,
		EmployerContributions: m.EmployerContributions,
		InvestmentReturns:     m.InvestmentReturns,
		GrossBenefit:          m.GrossBenefit,
		TaxEstimate:           m.TaxEstimate,
		AdminFeeEstimate:      m.AdminFeeEstimate,
		NetPayable:            m.NetPayable,
		PaymentMethod:         m.PaymentMethod,
		PaymentAccountNumber:  m.PaymentAccountNumber,
		PaymentBankName:       m.PaymentBankName,
		Remarks:               m.Remarks,
		RejectionReason:       m.RejectionReason,
		AppliedAt:             m.AppliedAt,
		ApprovedAt:            m.ApprovedAt,
		DisbursedAt:           m.DisbursedAt,
		ApprovedBy:            m.ApprovedBy,
		RejectedBy:            m.RejectedBy,
		DisbursedBy:           m.DisbursedBy,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}

	return &SubscriptionModel{
		ID:              s.ID,
		URL:             s.URL,
		Secret:          s.Secret,
		Events:          s.Events,
		Active:          s.Active,
		RetryCount:      s.RetryCount,
		TimeoutSeconds:  s.TimeoutSeconds,
		FailureCount:    s.FailureCount,
		LastTriggeredAt: s.LastTriggeredAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	return &domain.Subscription{
		ID:              m.ID,
		URL:             m.URL,
		Secret:          m.Secret,
		Events:          m.Events,
		Active:          m.Active,
		RetryCount:      m.RetryCount,
		TimeoutSeconds:  m.TimeoutSeconds,
		FailureCount:    m.FailureCount,
		LastTriggeredAt: m.LastTriggeredAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func deliveryModelFromDomain(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}

	return &DeliveryModel{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		EventType:      d.EventType,
		Payload:        d.Payload,
		Status:         d.Status,
		AttemptCount:   d.AttemptCount,
		ResponseStatus: d.ResponseStatus,
		ResponseBody:   d.ResponseBody,
		Error:          d.Error,
		DurationMillis: d.DurationMillis,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		EventType:      m.EventType,
		Payload:        m.Payload,
		Status:         m.Status,
		AttemptCount:   m.AttemptCount,
		ResponseStatus: m.ResponseStatus,
		ResponseBody:   m.ResponseBody,
		Error:          m.Error,
		DurationMillis: m.DurationMillis,
		NextRetryAt:    m.NextRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func memberModelToDomain(m *MemberModel) *domain.Member {
	if m == nil {
		return nil
	}

	return &domain.Member{
		ID:          m.ID,
		FullName:    m.FullName,
		DateOfBirth: m.DateOfBirth,
		EnrolledAt:  m.EnrolledAt,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
