package service

import (
	"context"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// RuleService manages company approval configuration. Validation happens
// here, at load time; the routing engine assumes stored policies and rules
// are well-formed.
type RuleService interface {
	GetPolicy(ctx context.Context, companyID int64) (*entity.CompanyPolicy, error)
	UpdatePolicy(ctx context.Context, policy *entity.CompanyPolicy) error
	CreateRule(ctx context.Context, rule *entity.ApprovalRule) error
	ListRules(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
}

type ruleServiceImpl struct {
	companies port.CompanyRepository
	rules     port.RuleRepository
	logger    Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(companies port.CompanyRepository, rules port.RuleRepository, logger Logger) RuleService {
	return &ruleServiceImpl{
		companies: companies,
		rules:     rules,
		logger:    logger,
	}
}

// GetPolicy retrieves a company's approval policy.
func (s *ruleServiceImpl) GetPolicy(ctx context.Context, companyID int64) (*entity.CompanyPolicy, error) {
	policy, err := s.companies.GetPolicy(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	if policy == nil {
		return nil, ErrCompanyNotFound
	}
	return policy, nil
}

// UpdatePolicy validates and stores a company policy. Claims already in
// flight keep the snapshot they were routed with.
func (s *ruleServiceImpl) UpdatePolicy(ctx context.Context, policy *entity.CompanyPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.companies.UpdatePolicy(ctx, policy); err != nil {
		s.logger.Error("Failed to update company policy", "error", err, "company_id", policy.ID)
		return err
	}

	s.logger.Info("Company policy updated",
		"company_id", policy.ID,
		"thresholds", len(policy.Thresholds),
		"conditional", policy.ConditionalRules.Enabled)
	return nil
}

// CreateRule validates and stores an approval rule. A new rule may not
// overlap an existing active rule's amount window when both carry identical
// specificity and their scopes intersect: such a pair would make resolution
// depend on creation order alone.
func (s *ruleServiceImpl) CreateRule(ctx context.Context, rule *entity.ApprovalRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, err := s.rules.ListActive(ctx, rule.CompanyID)
	if err != nil {
		return fmt.Errorf("list existing rules: %w", err)
	}
	for _, other := range existing {
		if ambiguousPair(rule, other) {
			return fmt.Errorf("%w: amount window overlaps rule %q with identical specificity",
				ErrInvalidInput, other.Name)
		}
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		s.logger.Error("Failed to create approval rule", "error", err, "name", rule.Name)
		return err
	}

	s.logger.Info("Approval rule created",
		"id", rule.ID, "name", rule.Name,
		"min_amount", rule.MinAmount, "max_amount", rule.MaxAmount,
		"steps", len(rule.Steps))
	return nil
}

// ambiguousPair reports whether two rules could both match one claim with
// nothing but rule ID left to break the tie.
func ambiguousPair(a, b *entity.ApprovalRule) bool {
	if a.MinAmount >= b.MaxAmount || b.MinAmount >= a.MaxAmount {
		return false
	}
	if a.Specificity() != b.Specificity() || a.Window() != b.Window() {
		return false
	}
	return scopesIntersect(a.Categories, b.Categories) && scopesIntersect(a.Departments, b.Departments)
}

// scopesIntersect treats an empty set as matching everything.
func scopesIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, v := range a {
		for _, w := range b {
			if v == w {
				return true
			}
		}
	}
	return false
}

// ListRules lists all rules of a company, active or not.
func (s *ruleServiceImpl) ListRules(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	rules, err := s.rules.List(ctx, companyID)
	if err != nil {
		s.logger.Error("Failed to list rules", "error", err, "company_id", companyID)
		return nil, err
	}
	return rules, nil
}
