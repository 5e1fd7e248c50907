package domain

import (
	"errors"
	"testing"
)

func TestParseClaimStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ClaimStatus
		wantErr bool
	}{
		{name: "valid uppercase", input: "APPROVED", want: ClaimStatusApproved},
		{name: "valid lowercase with spaces", input: " under_review ", want: ClaimStatusUnderReview},
		{name: "invalid", input: "shipped", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseClaimStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseClaimStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseClaimStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseClaimStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClaimStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from ClaimStatus
		to   ClaimStatus
		want bool
	}{
		{name: "pending to review", from: ClaimStatusPending, to: ClaimStatusUnderReview, want: true},
		{name: "pending to approved", from: ClaimStatusPending, to: ClaimStatusApproved, want: true},
		{name: "pending to rejected", from: ClaimStatusPending, to: ClaimStatusRejected, want: true},
		{name: "review to approved", from: ClaimStatusUnderReview, to: ClaimStatusApproved, want: true},
		{name: "approved to disbursed", from: ClaimStatusApproved, to: ClaimStatusDisbursed, want: true},
		{name: "approved to cancelled", from: ClaimStatusApproved, to: ClaimStatusCancelled, want: true},
		{name: "pending to disbursed", from: ClaimStatusPending, to: ClaimStatusDisbursed, want: false},
		{name: "rejected to disbursed", from: ClaimStatusRejected, to: ClaimStatusDisbursed, want: false},
		{name: "disbursed to disbursed", from: ClaimStatusDisbursed, to: ClaimStatusDisbursed, want: false},
		{name: "rejected to cancelled", from: ClaimStatusRejected, to: ClaimStatusCancelled, want: false},
		{name: "disbursed to pending", from: ClaimStatusDisbursed, to: ClaimStatusPending, want: false},
		{name: "approved back to review", from: ClaimStatusApproved, to: ClaimStatusUnderReview, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestClaimStatusClassification(t *testing.T) {
	t.Parallel()

	for _, s := range []ClaimStatus{ClaimStatusPending, ClaimStatusUnderReview, ClaimStatusApproved} {
		if !s.IsActive() {
			t.Fatalf("%s should be active", s)
		}
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}

	for _, s := range []ClaimStatus{ClaimStatusRejected, ClaimStatusDisbursed, ClaimStatusCancelled} {
		if s.IsActive() {
			t.Fatalf("%s should not be active", s)
		}
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestClaimValidate(t *testing.T) {
	t.Parallel()

	claim := Claim{
		MemberID:    "6f1f3f9a-64cb-4f5e-9d9f-000000000001",
		BenefitType: BenefitRetirement,
		Status:      ClaimStatusPending,
	}
	if err := claim.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	claim.NetPayable = -1
	if err := claim.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}

	claim.NetPayable = 0
	claim.MemberID = " "
	if err := claim.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestPaymentDetailsValidate(t *testing.T) {
	t.Parallel()

	pd := PaymentDetails{Method: "BANK_TRANSFER", AccountNumber: "0012345678", BankName: "First Bank"}
	if err := pd.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	pd.AccountNumber = ""
	if err := pd.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}
