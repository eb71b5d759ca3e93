package domain

import (
	"strings"
	"time"
)

// PlanTier enumerates subscription tiers. Tiers are totally ordered:
// free < pro < enterprise.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// ParsePlanTier maps a stored plan value onto a known tier.
func ParsePlanTier(v string) (PlanTier, bool) {
	switch PlanTier(strings.ToLower(strings.TrimSpace(v))) {
	case PlanFree:
		return PlanFree, true
	case PlanPro:
		return PlanPro, true
	case PlanEnterprise:
		return PlanEnterprise, true
	}
	return "", false
}

// Rank returns the position of the tier in the ordering, or -1 when unknown.
func (p PlanTier) Rank() int {
	switch p {
	case PlanFree:
		return 0
	case PlanPro:
		return 1
	case PlanEnterprise:
		return 2
	}
	return -1
}

// Valid reports whether p is one of the known tiers.
func (p PlanTier) Valid() bool {
	return p.Rank() >= 0
}

// Paid reports whether the tier is unmetered.
func (p PlanTier) Paid() bool {
	return p == PlanPro || p == PlanEnterprise
}

// Profile is the account row owned by the profile store.
type Profile struct {
	ID               string
	Email            string
	Plan             PlanTier
	DailyLimit       int
	CreditsRemaining int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsFree reports whether the profile is on the metered free plan.
func (p Profile) IsFree() bool {
	return p.Plan == PlanFree
}
