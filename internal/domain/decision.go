package domain

// DenyReason explains a denied access decision. The empty value is the
// unattributed denial used when the profile could not be read.
type DenyReason string

const (
	ReasonNone               DenyReason = ""
	ReasonPlanRequired       DenyReason = "PLAN_REQUIRED"
	ReasonEnterpriseRequired DenyReason = "ENTERPRISE_REQUIRED"
	ReasonNoCredits          DenyReason = "NO_CREDITS"
)

// AccessDecision is the result of one entitlement evaluation.
type AccessDecision struct {
	Allowed bool
	Reason  DenyReason
	// Plan is the tier observed by the profile read. Empty when the read failed.
	Plan PlanTier
}

// Allow returns an allowing decision for the given tier.
func Allow(plan PlanTier) AccessDecision {
	return AccessDecision{Allowed: true, Plan: plan}
}

// Deny returns a denying decision.
func Deny(plan PlanTier, reason DenyReason) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason, Plan: plan}
}

// Err converts a denied decision into its conversion error. It returns nil for
// allowed decisions.
func (d AccessDecision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonPlanRequired:
		return ErrPlanRequired
	case ReasonEnterpriseRequired:
		return ErrEnterpriseRequired
	case ReasonNoCredits:
		return ErrNoCredits
	}
	return ErrAccessDenied
}
