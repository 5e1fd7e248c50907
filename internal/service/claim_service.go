package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pensionio/backoffice/internal/benefit"
	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/observability"
	"github.com/pensionio/backoffice/internal/repository"
	"go.uber.org/zap"
)

const (
	// referenceMaxAttempts bounds regeneration when a claim reference
	// collides on the unique index.
	referenceMaxAttempts = 5
	referenceSuffixRange = 10000
)

// ClaimService owns the benefit claim lifecycle. All status moves go
// through the domain transition table under a row lock; the one-active-
// claim-per-member rule is enforced by the storage layer's partial
// unique index, so concurrent applies race safely.
type ClaimService struct {
	claims        repository.ClaimRepository
	members       repository.MemberRepository
	contributions repository.ContributionRepository
	calculator    *benefit.Calculator
	events        EventEmitter
	logger        *zap.Logger
	now           func() time.Time
	randIntn      func(n int) int
}

// ClaimEventPayload is the JSON body delivered to webhook subscribers
// for claim lifecycle events.
type ClaimEventPayload struct {
	ClaimID         string  `json:"claimId"`
	ReferenceNumber string  `json:"referenceNumber"`
	CorrelationID   string  `json:"correlationId,omitempty"`
	MemberID        string  `json:"memberId"`
	BenefitType     string  `json:"benefitType"`
	Status          string  `json:"status"`
	NetPayable      float64 `json:"netPayable"`
	OccurredAt      string  `json:"occurredAt"`
}

func NewClaimService(
	claims repository.ClaimRepository,
	members repository.MemberRepository,
	contributions repository.ContributionRepository,
	calculator *benefit.Calculator,
	events EventEmitter,
	logger *zap.Logger,
) (*ClaimService, error) {
	if claims == nil {
		return nil, fmt.Errorf("claim repository is required")
	}
	if members == nil {
		return nil, fmt.Errorf("member repository is required")
	}
	if contributions == nil {
		return nil, fmt.Errorf("contribution repository is required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("calculator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClaimService{
		claims:        claims,
		members:       members,
		contributions: contributions,
		calculator:    calculator,
		events:        events,
		logger:        logger,
		now:           time.Now,
		randIntn:      rand.Intn,
	}, nil
}

// Apply files a new claim for a member. The calculation engine runs on
// the member's current contribution totals; an ineligible verdict fails
// with ErrInvalidClaim and an existing active claim with
// ErrDuplicateClaim.
func (s *ClaimService) Apply(ctx context.Context, memberID string, benefitType domain.BenefitType, payment domain.PaymentDetails) (*domain.Claim, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	if !benefitType.IsValid() {
		return nil, fmt.Errorf("%w: invalid benefit type %q", domain.ErrValidation, benefitType)
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	monthly, err := s.contributions.TotalByMemberAndType(ctx, memberID, domain.ContributionMonthly)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly contribution total: %w", err)
	}
	voluntary, err := s.contributions.TotalByMemberAndType(ctx, memberID, domain.ContributionVoluntary)
	if err != nil {
		return nil, fmt.Errorf("failed to load voluntary contribution total: %w", err)
	}

	now := s.now().UTC()
	result, err := s.calculator.Calculate(benefit.Input{
		MemberAgeYears:         member.AgeYears(now),
		YearsOfService:         member.YearsOfService(now),
		MonthlyContributions:   monthly,
		VoluntaryContributions: voluntary,
		BenefitType:            benefitType,
	})
	if err != nil {
		return nil, err
	}
	if !result.IsEligible() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidClaim, result.Message)
	}

	claim := &domain.Claim{
		ID:                    uuid.NewString(),
		MemberID:              memberID,
		BenefitType:           benefitType,
		Status:                domain.ClaimStatusPending,
		TotalContributions:    result.TotalContributions,
		EmployerContributions: result.EmployerContributions,
		InvestmentReturns:     result.InvestmentReturns,
		GrossBenefit:          result.GrossBenefit,
		TaxEstimate:           result.TaxEstimate,
		AdminFeeEstimate:      result.AdminFeeEstimate,
		NetPayable:            result.NetPayable,
		PaymentMethod:         strings.TrimSpace(payment.Method),
		PaymentAccountNumber:  strings.TrimSpace(payment.AccountNumber),
		PaymentBankName:       strings.TrimSpace(payment.BankName),
		AppliedAt:             now,
	}

	if err := s.createWithReference(ctx, claim); err != nil {
		return nil, err
	}

	s.emitClaimEvent(ctx, domain.EventClaimSubmitted, claim)
	return claim, nil
}

// createWithReference inserts the claim, regenerating the reference
// number on collision. Duplicate-claim violations are returned as-is.
func (s *ClaimService) createWithReference(ctx context.Context, claim *domain.Claim) error {
	var lastErr error
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		claim.ReferenceNumber = s.generateReference()

		err := s.claims.Create(ctx, claim)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrDuplicateClaim) {
			return err
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}

		lastErr = err
		s.logger.Warn("claim reference collision, regenerating",
			zap.String("reference", claim.ReferenceNumber),
			zap.Int("attempt", attempt+1),
		)
	}

	return fmt.Errorf("failed to generate unique claim reference after %d attempts: %w", referenceMaxAttempts, lastErr)
}

func (s *ClaimService) generateReference() string {
	suffix := 0
	if s.randIntn != nil {
		suffix = s.randIntn(referenceSuffixRange)
	}
	return fmt.Sprintf("BEN%d%04d", s.now().UTC().UnixMilli(), suffix)
}

// StartReview moves a PENDING claim to UNDER_REVIEW.
func (s *ClaimService) StartReview(ctx context.Context, claimID string) (*domain.Claim, error) {
	return s.transition(ctx, claimID, domain.ClaimStatusUnderReview, func(c *domain.Claim) {})
}

// Approve moves a PENDING or UNDER_REVIEW claim to APPROVED, recording
// the approver and time. A non-nil approvedAmount overrides the computed
// net payable; nil keeps the calculated figure.
func (s *ClaimService) Approve(ctx context.Context, claimID string, approver string, approvedAmount *float64) (*domain.Claim, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return nil, fmt.Errorf("%w: approver identity is required", domain.ErrValidation)
	}
	if approvedAmount != nil && *approvedAmount < 0 {
		return nil, fmt.Errorf("%w: approved amount must not be negative", domain.ErrValidation)
	}

	claim, err := s.transition(ctx, claimID, domain.ClaimStatusApproved, func(c *domain.Claim) {
		at := s.now().UTC()
		c.ApprovedAt = &at
		c.ApprovedBy = &approver
		if approvedAmount != nil {
			c.NetPayable = *approvedAmount
		}
	})
	if err != nil {
		return nil, err
	}

	s.emitClaimEvent(ctx, domain.EventClaimApproved, claim)
	return claim, nil
}

// Reject moves a PENDING or UNDER_REVIEW claim to REJECTED. The reason
// is mandatory.
func (s *ClaimService) Reject(ctx context.Context, claimID string, reason string, rejecter string) (*domain.Claim, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	rejecter = strings.TrimSpace(rejecter)
	if rejecter == "" {
		return nil, fmt.Errorf("%w: rejecter identity is required", domain.ErrValidation)
	}

	claim, err := s.transition(ctx, claimID, domain.ClaimStatusRejected, func(c *domain.Claim) {
		c.RejectionReason = &reason
		c.RejectedBy = &rejecter
	})
	if err != nil {
		return nil, err
	}

	s.emitClaimEvent(ctx, domain.EventClaimRejected, claim)
	return claim, nil
}

// Disburse moves an APPROVED claim to DISBURSED. For RETIREMENT benefits
// the member's status flips to RETIRED through the member collaborator;
// a failure there is logged, not rolled back, since the payout already
// happened.
func (s *ClaimService) Disburse(ctx context.Context, claimID string, disburser string) (*domain.Claim, error) {
	disburser = strings.TrimSpace(disburser)
	if disburser == "" {
		return nil, fmt.Errorf("%w: disburser identity is required", domain.ErrValidation)
	}

	claim, err := s.transition(ctx, claimID, domain.ClaimStatusDisbursed, func(c *domain.Claim) {
		at := s.now().UTC()
		c.DisbursedAt = &at
		c.DisbursedBy = &disburser
	})
	if err != nil {
		return nil, err
	}

	if claim.BenefitType == domain.BenefitRetirement {
		if err := s.members.SetStatus(ctx, claim.MemberID, domain.MemberStatusRetired); err != nil {
			s.logger.Error("failed to mark member retired after disbursement",
				zap.String("claimId", claim.ID),
				zap.String("memberId", claim.MemberID),
				zap.Error(err),
			)
		}
	}

	s.emitClaimEvent(ctx, domain.EventClaimDisbursed, claim)
	s.emitClaimEvent(ctx, domain.EventPaymentSuccess, claim)
	return claim, nil
}

// Cancel moves any non-terminal claim to CANCELLED. Cancelling an
// already cancelled claim is a no-op so client retries stay simple.
func (s *ClaimService) Cancel(ctx context.Context, claimID string) (*domain.Claim, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return nil, fmt.Errorf("%w: claim id is required", domain.ErrValidation)
	}

	cancelled := false
	claim, err := s.claims.UpdateLocked(ctx, claimID, func(c *domain.Claim) error {
		if c.Status == domain.ClaimStatusCancelled {
			return nil
		}
		if !c.Status.CanTransitionTo(domain.ClaimStatusCancelled) {
			return fmt.Errorf("%w: cannot cancel claim in status %s", domain.ErrInvalidState, c.Status)
		}
		c.Status = domain.ClaimStatusCancelled
		cancelled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.emitClaimEvent(ctx, domain.EventClaimCancelled, claim)
	}
	return claim, nil
}

func (s *ClaimService) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: claim id is required", domain.ErrValidation)
	}
	return s.claims.GetByID(ctx, strings.TrimSpace(id))
}

func (s *ClaimService) List(ctx context.Context, params repository.ClaimListParams) ([]domain.Claim, int64, error) {
	return s.claims.List(ctx, params)
}

func (s *ClaimService) transition(ctx context.Context, claimID string, target domain.ClaimStatus, apply func(c *domain.Claim)) (*domain.Claim, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return nil, fmt.Errorf("%w: claim id is required", domain.ErrValidation)
	}

	return s.claims.UpdateLocked(ctx, claimID, func(c *domain.Claim) error {
		if !c.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: cannot move claim from %s to %s", domain.ErrInvalidState, c.Status, target)
		}
		c.Status = target
		apply(c)
		return nil
	})
}

func (s *ClaimService) emitClaimEvent(ctx context.Context, eventType domain.EventType, claim *domain.Claim) {
	if s.events == nil || claim == nil {
		return
	}

	correlationID, _ := observability.CorrelationIDFromContext(ctx)

	s.events.Emit(ctx, eventType, ClaimEventPayload{
		ClaimID:         claim.ID,
		ReferenceNumber: claim.ReferenceNumber,
		CorrelationID:   correlationID,
		MemberID:        claim.MemberID,
		BenefitType:     claim.BenefitType.String(),
		Status:          claim.Status.String(),
		NetPayable:      claim.NetPayable,
		OccurredAt:      s.now().UTC().Format(time.RFC3339),
	})
}
