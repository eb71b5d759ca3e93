// Package entitlement decides whether a user may run a tool.
package entitlement

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pdfgate/internal/domain"
	"pdfgate/internal/registry"
)

// Evaluator combines the tool registry with a fresh profile read. It keeps no
// state between calls.
type Evaluator struct {
	profiles domain.ProfileStore
	tools    *registry.Registry
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewEvaluator constructs an Evaluator. timeout bounds each profile read; zero
// leaves the caller's deadline in charge.
func NewEvaluator(profiles domain.ProfileStore, tools *registry.Registry, timeout time.Duration, logger zerolog.Logger) *Evaluator {
	return &Evaluator{profiles: profiles, tools: tools, timeout: timeout, logger: logger}
}

// Evaluate returns the access decision for userID running toolID. Rules apply
// in order and the first match wins:
//
//  1. unreadable or missing profile: deny without a reason
//  2. enterprise-only tool, tier below enterprise: ENTERPRISE_REQUIRED
//  3. pro tool, tier below pro: PLAN_REQUIRED
//  4. paid tier: allow
//  5. free tier with credits: allow
//  6. otherwise: NO_CREDITS
//
// Unregistered tools skip rules 2 and 3.
func (e *Evaluator) Evaluate(ctx context.Context, userID, toolID string) domain.AccessDecision {
	profile, err := e.readProfile(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Str("tool", toolID).Msg("entitlement: profile unavailable")
		return domain.Deny("", domain.ReasonNone)
	}
	plan, ok := domain.ParsePlanTier(string(profile.Plan))
	if !ok {
		e.logger.Warn().Str("user_id", userID).Str("plan", string(profile.Plan)).Msg("entitlement: unknown plan")
		return domain.Deny("", domain.ReasonNone)
	}
	return Decide(plan, profile.CreditsRemaining, e.tools, toolID)
}

// Decide applies the policy rules 2-6 to an already loaded profile.
func Decide(plan domain.PlanTier, credits int, tools *registry.Registry, toolID string) domain.AccessDecision {
	if d, ok := tools.Lookup(toolID); ok {
		switch d.RequiredPlan {
		case domain.PlanEnterprise:
			if plan != domain.PlanEnterprise {
				return domain.Deny(plan, domain.ReasonEnterpriseRequired)
			}
		case domain.PlanPro:
			if plan != domain.PlanPro && plan != domain.PlanEnterprise {
				return domain.Deny(plan, domain.ReasonPlanRequired)
			}
		}
	}
	if plan.Paid() {
		return domain.Allow(plan)
	}
	if plan == domain.PlanFree && credits > 0 {
		return domain.Allow(plan)
	}
	return domain.Deny(plan, domain.ReasonNoCredits)
}

func (e *Evaluator) readProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	profile, err := e.profiles.ReadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}
