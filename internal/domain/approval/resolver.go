package approval

import (
	"fmt"
	"sort"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Resolution is the outcome of rule selection: the abstract steps to bind
// into a chain. An empty step list means the claim needs no approval and
// auto-approves at submission.
type Resolution struct {
	Steps []entity.RuleStep
	Rule  *entity.ApprovalRule // non-nil when an ApprovalRule won over thresholds
}

// ResolveRule selects the applicable routing for a claim. ApprovalRules win
// over CompanyPolicy thresholds when both match: the narrowest amount
// window is preferred, tie-broken by the most specific category/department
// scoping, then by lowest rule ID so selection is deterministic.
func ResolveRule(policy *entity.CompanyPolicy, rules []*entity.ApprovalRule, convertedAmount float64, category, department string) (*Resolution, error) {
	if policy == nil {
		return nil, ErrNoCompanyPolicy
	}
	if convertedAmount <= 0 {
		return nil, fmt.Errorf("converted amount must be positive, got %v", convertedAmount)
	}

	if rule := bestRule(rules, convertedAmount, category, department); rule != nil {
		steps := make([]entity.RuleStep, len(rule.Steps))
		copy(steps, rule.Steps)
		sort.Slice(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })
		return &Resolution{Steps: steps, Rule: rule}, nil
	}

	// Threshold fallback: walk ascending and keep the highest threshold the
	// amount clears. Its required role becomes a single-step chain.
	var matched *entity.Threshold
	for _, t := range policy.SortedThresholds() {
		if t.Amount <= convertedAmount {
			tt := t
			matched = &tt
		}
	}
	if matched != nil {
		return &Resolution{Steps: []entity.RuleStep{{
			Sequence:     1,
			ApproverRole: matched.RequiredRole,
			Required:     true,
		}}}, nil
	}

	if policy.RequireManagerApproval {
		return &Resolution{Steps: []entity.RuleStep{{
			Sequence:          1,
			ApproverRole:      entity.RoleManager,
			IsManagerApprover: true,
			Required:          true,
		}}}, nil
	}

	// Nothing matches: zero steps, claim auto-approves.
	return &Resolution{}, nil
}

func bestRule(rules []*entity.ApprovalRule, amount float64, category, department string) *entity.ApprovalRule {
	var best *entity.ApprovalRule
	for _, r := range rules {
		if r == nil || !r.Matches(amount, category, department) {
			continue
		}
		if best == nil || narrower(r, best) {
			best = r
		}
	}
	return best
}

func narrower(a, b *entity.ApprovalRule) bool {
	if a.Window() != b.Window() {
		return a.Window() < b.Window()
	}
	if a.Specificity() != b.Specificity() {
		return a.Specificity() > b.Specificity()
	}
	return a.ID < b.ID
}
