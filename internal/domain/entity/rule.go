package entity

import (
	"fmt"
	"time"
)

// ApprovalRule is a finer-grained overlay on CompanyPolicy thresholds: an
// amount window [MinAmount, MaxAmount) with optional category/department
// scoping and an ordered list of abstract approval steps.
type ApprovalRule struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Name        string     `json:"name"`
	MinAmount   float64    `json:"min_amount"`
	MaxAmount   float64    `json:"max_amount"`
	Categories  []string   `json:"categories,omitempty"`
	Departments []string   `json:"departments,omitempty"`
	Steps       []RuleStep `json:"steps"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RuleStep is an abstract step before approver binding. Sequence values are
// unique within a rule and form a total order; they need not be contiguous.
type RuleStep struct {
	Sequence          int     `json:"sequence"`
	ApproverRole      string  `json:"approver_role"`
	IsManagerApprover bool    `json:"is_manager_approver"`
	ApprovalLimit     float64 `json:"approval_limit,omitempty"`
	Required          bool    `json:"required"`
}

// Validate checks rule shape at load time.
func (r *ApprovalRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.MinAmount < 0 {
		return fmt.Errorf("min amount must be non-negative")
	}
	if r.MaxAmount <= r.MinAmount {
		return fmt.Errorf("max amount must exceed min amount")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("rule must have at least one step")
	}
	seen := make(map[int]bool, len(r.Steps))
	for i, s := range r.Steps {
		if seen[s.Sequence] {
			return fmt.Errorf("step %d: duplicate sequence %d", i, s.Sequence)
		}
		seen[s.Sequence] = true
		if !s.IsManagerApprover && !ValidRoles[s.ApproverRole] {
			return fmt.Errorf("step %d: unknown role %q", i, s.ApproverRole)
		}
	}
	return nil
}

// Matches reports whether the rule applies to a claim with the given
// converted amount, category and department. Empty category/department
// sets match everything.
func (r *ApprovalRule) Matches(amount float64, category, department string) bool {
	if !r.IsActive {
		return false
	}
	if amount < r.MinAmount || amount >= r.MaxAmount {
		return false
	}
	if len(r.Categories) > 0 && !contains(r.Categories, category) {
		return false
	}
	if len(r.Departments) > 0 && !contains(r.Departments, department) {
		return false
	}
	return true
}

// Window returns the width of the rule's amount window, used to prefer the
// narrowest matching rule.
func (r *ApprovalRule) Window() float64 {
	return r.MaxAmount - r.MinAmount
}

// Specificity counts non-empty scoping sets, used as a tie-break between
// rules with equal windows.
func (r *ApprovalRule) Specificity() int {
	n := 0
	if len(r.Categories) > 0 {
		n++
	}
	if len(r.Departments) > 0 {
		n++
	}
	return n
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
