package entity

import (
	"fmt"
	"sort"
	"time"
)

// CompanyPolicy holds a company's approval configuration. The engine reads
// a snapshot at claim creation; historical claims are never re-evaluated
// when the policy changes.
type CompanyPolicy struct {
	ID                     int64            `json:"id"`
	Name                   string           `json:"name"`
	BaseCurrency           string           `json:"base_currency"`
	Sequential             bool             `json:"sequential"`
	RequireManagerApproval bool             `json:"require_manager_approval"`
	Thresholds             []Threshold      `json:"thresholds"`
	ConditionalRules       ConditionalRules `json:"conditional_rules"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// Threshold maps an amount cutoff in the base currency to the minimum role
// required to approve amounts at or above it.
type Threshold struct {
	Amount       float64 `json:"amount"`
	RequiredRole string  `json:"required_role"`
}

// ConditionalRules configures early finalization of a claim before all
// sequential steps complete.
type ConditionalRules struct {
	Enabled              bool                 `json:"enabled"`
	PercentageRule       PercentageRule       `json:"percentage_rule"`
	SpecificApproverRule SpecificApproverRule `json:"specific_approver_rule"`
	Hybrid               bool                 `json:"hybrid"`
}

// PercentageRule finalizes a claim once the share of approved chain steps
// reaches the configured percentage.
type PercentageRule struct {
	Enabled    bool `json:"enabled"`
	Percentage int  `json:"percentage"`
}

// SpecificApproverRule finalizes a claim as soon as the designated approver
// approves, regardless of chain position.
type SpecificApproverRule struct {
	Enabled    bool  `json:"enabled"`
	ApproverID int64 `json:"approver_id"`
}

// Validate checks the policy at load time so the engine never has to
// re-validate at use time.
func (p *CompanyPolicy) Validate() error {
	if len(p.BaseCurrency) != 3 {
		return fmt.Errorf("base currency must be a 3-letter code, got %q", p.BaseCurrency)
	}
	for i, t := range p.Thresholds {
		if t.Amount < 0 {
			return fmt.Errorf("threshold %d: amount must be non-negative", i)
		}
		if !ValidRoles[t.RequiredRole] {
			return fmt.Errorf("threshold %d: unknown role %q", i, t.RequiredRole)
		}
	}
	if p.ConditionalRules.Enabled {
		pr := p.ConditionalRules.PercentageRule
		if pr.Enabled && (pr.Percentage < 1 || pr.Percentage > 100) {
			return fmt.Errorf("percentage rule: percentage must be 1-100, got %d", pr.Percentage)
		}
		sr := p.ConditionalRules.SpecificApproverRule
		if sr.Enabled && sr.ApproverID <= 0 {
			return fmt.Errorf("specific approver rule: approver id required")
		}
		if !pr.Enabled && !sr.Enabled {
			return fmt.Errorf("conditional rules enabled but no sub-rule configured")
		}
	}
	return nil
}

// SortedThresholds returns the thresholds in ascending amount order, the
// order threshold evaluation walks them in.
func (p *CompanyPolicy) SortedThresholds() []Threshold {
	out := make([]Threshold, len(p.Thresholds))
	copy(out, p.Thresholds)
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}
