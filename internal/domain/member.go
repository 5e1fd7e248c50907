package domain

import (
	"fmt"
	"strings"
	"time"
)

// MemberStatus represents the enrollment state of a member.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusRetired  MemberStatus = "RETIRED"
	MemberStatusInactive MemberStatus = "INACTIVE"
	MemberStatusDeceased MemberStatus = "DECEASED"
)

func (s MemberStatus) String() string { return string(s) }

func (s MemberStatus) IsValid() bool {
	switch s {
	case MemberStatusActive, MemberStatusRetired, MemberStatusInactive, MemberStatusDeceased:
		return true
	}
	return false
}

// ContributionType distinguishes statutory monthly contributions from
// voluntary top-ups.
type ContributionType string

const (
	ContributionMonthly   ContributionType = "MONTHLY"
	ContributionVoluntary ContributionType = "VOLUNTARY"
)

func (t ContributionType) String() string { return string(t) }

func (t ContributionType) IsValid() bool {
	return t == ContributionMonthly || t == ContributionVoluntary
}

// Member is the registry entry the claim flow reads from. Full member
// CRUD lives outside this service; the claim flow only needs age,
// service length, and status.
type Member struct {
	ID          string       `gorm:"type:uuid;primaryKey"`
	FullName    string       `gorm:"type:varchar(200);not null"`
	DateOfBirth time.Time    `gorm:"not null"`
	EnrolledAt  time.Time    `gorm:"not null"`
	Status      MemberStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgeYears returns the member's completed age in years at the given time.
func (m *Member) AgeYears(now time.Time) int {
	years := now.Year() - m.DateOfBirth.Year()
	anniversary := m.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// YearsOfService returns completed years since enrollment.
func (m *Member) YearsOfService(now time.Time) int {
	years := now.Year() - m.EnrolledAt.Year()
	anniversary := m.EnrolledAt.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// Contribution is a single recorded payment into a member's account.
type Contribution struct {
	ID            string           `gorm:"type:uuid;primaryKey"`
	MemberID      string           `gorm:"type:uuid;not null"`
	Type          ContributionType `gorm:"type:varchar(20);not null"`
	Amount        float64          `gorm:"not null"`
	ContributedAt time.Time        `gorm:"not null"`
	CreatedAt     time.Time
}

func ParseMemberStatusFromString(s string) (MemberStatus, error) {
	st := MemberStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid member status %q", ErrValidation, s)
	}
	return st, nil
}

func ParseContributionTypeFromString(s string) (ContributionType, error) {
	t := ContributionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid contribution type %q", ErrValidation, s)
	}
	return t, nil
}
