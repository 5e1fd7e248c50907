// Package benefit implements the eligibility and payout calculation
// engine. Everything here is pure: no storage, no clock, no side effects.
package benefit

import (
	"fmt"

	"github.com/pensionio/backoffice/internal/domain"
)

const (
	// employerContributionRate is the employer top-up estimate applied to
	// the member's total contributions.
	employerContributionRate = 0.10
	// investmentReturnRate is a flat per-service-year rate, not compound
	// interest. Payout figures depend on the linear formula.
	investmentReturnRate = 0.08

	defaultRetirementAge = 60
)

// Policy carries the configurable percentages applied to the gross
// benefit. Rates are fractions (0.05 = 5%).
type Policy struct {
	TaxRate       float64
	AdminFeeRate  float64
	RetirementAge int
}

func (p Policy) retirementAge() int {
	if p.RetirementAge <= 0 {
		return defaultRetirementAge
	}
	return p.RetirementAge
}

// Input is the snapshot of member facts the engine computes from.
type Input struct {
	MemberAgeYears         int
	YearsOfService         int
	MonthlyContributions   float64
	VoluntaryContributions float64
	BenefitType            domain.BenefitType
}

// EligibilityStatus is the engine's verdict on a claim input.
type EligibilityStatus string

const (
	Eligible   EligibilityStatus = "ELIGIBLE"
	Ineligible EligibilityStatus = "INELIGIBLE"
)

// Result is the full payout breakdown plus the eligibility verdict.
type Result struct {
	Eligibility           EligibilityStatus
	Message               string
	TotalContributions    float64
	EmployerContributions float64
	InvestmentReturns     float64
	GrossBenefit          float64
	TaxEstimate           float64
	AdminFeeEstimate      float64
	NetPayable            float64
}

func (r Result) IsEligible() bool { return r.Eligibility == Eligible }

// Predicate decides eligibility for one benefit type. Implementations
// must be pure.
type Predicate func(policy Policy, in Input) (bool, string)

// RetirementPredicate requires the policy retirement age and at least one
// contribution on record.
func RetirementPredicate(policy Policy, in Input) (bool, string) {
	if in.MemberAgeYears < policy.retirementAge() {
		return false, fmt.Sprintf("member age %d is below retirement age %d", in.MemberAgeYears, policy.retirementAge())
	}
	if in.MonthlyContributions+in.VoluntaryContributions <= 0 {
		return false, "no contributions on record"
	}
	return true, "eligible for retirement benefit"
}

// ContributionsOnRecordPredicate is the default rule for benefit types
// whose statutory conditions are adjudicated outside this service: it
// only requires a funded account.
func ContributionsOnRecordPredicate(_ Policy, in Input) (bool, string) {
	if in.MonthlyContributions+in.VoluntaryContributions <= 0 {
		return false, "no contributions on record"
	}
	return true, "contributions on record"
}

// Calculator computes benefit breakdowns with per-type eligibility
// predicates. The zero value is not usable; construct with NewCalculator.
type Calculator struct {
	policy     Policy
	predicates map[domain.BenefitType]Predicate
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{
		policy: policy,
		predicates: map[domain.BenefitType]Predicate{
			domain.BenefitRetirement: RetirementPredicate,
			domain.BenefitDeath:      ContributionsOnRecordPredicate,
			domain.BenefitDisability: ContributionsOnRecordPredicate,
			domain.BenefitWithdrawal: ContributionsOnRecordPredicate,
		},
	}
}

// RegisterPredicate replaces the eligibility rule for a benefit type.
func (c *Calculator) RegisterPredicate(benefitType domain.BenefitType, predicate Predicate) error {
	if !benefitType.IsValid() {
		return fmt.Errorf("%w: invalid benefit type %q", domain.ErrValidation, benefitType)
	}
	if predicate == nil {
		return fmt.Errorf("%w: predicate is required", domain.ErrValidation)
	}
	c.predicates[benefitType] = predicate
	return nil
}

// Calculate evaluates eligibility and computes the payout breakdown. An
// ineligible result still carries the computed figures so callers can
// surface what the member would have received.
func (c *Calculator) Calculate(in Input) (Result, error) {
	if !in.BenefitType.IsValid() {
		return Result{}, fmt.Errorf("%w: invalid benefit type %q", domain.ErrValidation, in.BenefitType)
	}
	if in.MonthlyContributions < 0 || in.VoluntaryContributions < 0 {
		return Result{}, fmt.Errorf("%w: contribution totals must not be negative", domain.ErrValidation)
	}
	if in.YearsOfService < 0 {
		return Result{}, fmt.Errorf("%w: years of service must not be negative", domain.ErrValidation)
	}

	predicate, ok := c.predicates[in.BenefitType]
	if !ok {
		return Result{}, fmt.Errorf("%w: no eligibility rule for benefit type %q", domain.ErrValidation, in.BenefitType)
	}

	total := in.MonthlyContributions + in.VoluntaryContributions
	employer := total * employerContributionRate
	returns := (total + employer) * investmentReturnRate * float64(in.YearsOfService)
	gross := total + employer + returns
	tax := gross * c.policy.TaxRate
	fee := gross * c.policy.AdminFeeRate
	net := gross - tax - fee
	if net < 0 {
		net = 0
	}

	result := Result{
		TotalContributions:    total,
		EmployerContributions: employer,
		InvestmentReturns:     returns,
		GrossBenefit:          gross,
		TaxEstimate:           tax,
		AdminFeeEstimate:      fee,
		NetPayable:            net,
	}

	ok, message := predicate(c.policy, in)
	if !ok {
		result.Eligibility = Ineligible
		result.Message = message
		return result, nil
	}

	result.Eligibility = Eligible
	result.Message = message
	return result, nil
}
