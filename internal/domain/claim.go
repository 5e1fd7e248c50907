package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClaimStatus represents the lifecycle state of a benefit claim.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "PENDING"
	ClaimStatusUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimStatusApproved    ClaimStatus = "APPROVED"
	ClaimStatusRejected    ClaimStatus = "REJECTED"
	ClaimStatusDisbursed   ClaimStatus = "DISBURSED"
	ClaimStatusCancelled   ClaimStatus = "CANCELLED"
)

func (s ClaimStatus) String() string { return string(s) }

func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusUnderReview, ClaimStatusApproved,
		ClaimStatusRejected, ClaimStatusDisbursed, ClaimStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ClaimStatus) IsTerminal() bool {
	switch s {
	case ClaimStatusRejected, ClaimStatusDisbursed, ClaimStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the claim counts against the one-active-claim-
// per-member constraint.
func (s ClaimStatus) IsActive() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusUnderReview, ClaimStatusApproved:
		return true
	}
	return false
}

func ParseClaimStatusFromString(s string) (ClaimStatus, error) {
	st := ClaimStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid claim status %q", ErrValidation, s)
	}
	return st, nil
}

// claimTransitions is the single source of truth for permitted status
// moves. Cancellation of an already cancelled claim is handled as a no-op
// by the service, not listed here.
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusPending:     {ClaimStatusUnderReview, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCancelled},
	ClaimStatusUnderReview: {ClaimStatusApproved, ClaimStatusRejected, ClaimStatusCancelled},
	ClaimStatusApproved:    {ClaimStatusDisbursed, ClaimStatusCancelled},
	ClaimStatusRejected:    {},
	ClaimStatusDisbursed:   {},
	ClaimStatusCancelled:   {},
}

// CanTransitionTo reports whether moving from s to target is permitted.
func (s ClaimStatus) CanTransitionTo(target ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// BenefitType represents the category of benefit being claimed.
type BenefitType string

const (
	BenefitRetirement BenefitType = "RETIREMENT"
	BenefitDeath      BenefitType = "DEATH"
	BenefitDisability BenefitType = "DISABILITY"
	BenefitWithdrawal BenefitType = "WITHDRAWAL"
)

func (t BenefitType) String() string { return string(t) }

func (t BenefitType) IsValid() bool {
	switch t {
	case BenefitRetirement, BenefitDeath, BenefitDisability, BenefitWithdrawal:
		return true
	}
	return false
}

func ParseBenefitTypeFromString(s string) (BenefitType, error) {
	t := BenefitType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid benefit type %q", ErrValidation, s)
	}
	return t, nil
}

// PaymentDetails carries the disbursement instructions captured at
// application time.
type PaymentDetails struct {
	Method        string
	AccountNumber string
	BankName      string
}

func (p PaymentDetails) Validate() error {
	if strings.TrimSpace(p.Method) == "" {
		return fmt.Errorf("%w: payment method is required", ErrValidation)
	}
	if strings.TrimSpace(p.AccountNumber) == "" {
		return fmt.Errorf("%w: payment account number is required", ErrValidation)
	}
	return nil
}

// Claim is the core domain entity representing a member's request for a
// benefit payout. Claims are never physically deleted.
type Claim struct {
	ID              string      `gorm:"type:uuid;primaryKey"`
	ReferenceNumber string      `gorm:"type:varchar(40);not null"`
	MemberID        string      `gorm:"type:uuid;not null"`
	BenefitType     BenefitType `gorm:"type:varchar(20);not null"`
	Status          ClaimStatus `gorm:"type:varchar(20);not null"`

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

func (c *Claim) Validate() error {
	if strings.TrimSpace(c.MemberID) == "" {
		return fmt.Errorf("%w: member id is required", ErrValidation)
	}
	if !c.BenefitType.IsValid() {
		return fmt.Errorf("%w: invalid benefit type %q", ErrValidation, c.BenefitType)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid claim status %q", ErrValidation, c.Status)
	}
	if c.NetPayable < 0 {
		return fmt.Errorf("%w: net payable must not be negative", ErrValidation)
	}
	return nil
}
