package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RuleRepository implements port.RuleRepository. Steps live in a child table;
// category and department scopes are stored as JSON arrays on the rule row.
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new approval rule with its steps
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	categories, err := json.Marshal(rule.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	departments, err := json.Marshal(rule.Departments)
	if err != nil {
		return fmt.Errorf("marshal departments: %w", err)
	}

	query := `
		INSERT INTO approval_rules (
			company_id, name, min_amount, max_amount, categories, departments, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		rule.CompanyID,
		rule.Name,
		rule.MinAmount,
		rule.MaxAmount,
		string(categories),
		string(departments),
		rule.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create approval rule", zap.String("name", rule.Name), zap.Error(err))
		return fmt.Errorf("failed to create approval rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id

	for _, step := range rule.Steps {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO approval_rule_steps (
				rule_id, sequence, approver_role, is_manager_approver, approval_limit, required
			) VALUES (?, ?, ?, ?, ?, ?)`,
			rule.ID, step.Sequence, step.ApproverRole, step.IsManagerApprover, step.ApprovalLimit, step.Required,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule step: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an approval rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	rules, err := r.list(ctx, `WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules[0], nil
}

// ListActive lists a company's active rules
func (r *RuleRepository) ListActive(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	return r.list(ctx, `WHERE r.company_id = ? AND r.is_active = 1`, companyID)
}

// List lists all of a company's rules, active or not
func (r *RuleRepository) List(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	return r.list(ctx, `WHERE r.company_id = ?`, companyID)
}

func (r *RuleRepository) list(ctx context.Context, where string, args ...interface{}) ([]*entity.ApprovalRule, error) {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	query := `
		SELECT r.id, r.company_id, r.name, r.min_amount, r.max_amount,
			r.categories, r.departments, r.is_active, r.created_at, r.updated_at
		FROM approval_rules r ` + where + ` ORDER BY r.id ASC`

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approval rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list approval rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.ApprovalRule
	byID := make(map[int64]*entity.ApprovalRule)
	for rows.Next() {
		var rule entity.ApprovalRule
		var categories, departments string
		if err := rows.Scan(
			&rule.ID, &rule.CompanyID, &rule.Name, &rule.MinAmount, &rule.MaxAmount,
			&categories, &departments, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval rule: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &rule.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
		if err := json.Unmarshal([]byte(departments), &rule.Departments); err != nil {
			return nil, fmt.Errorf("unmarshal departments: %w", err)
		}
		rules = append(rules, &rule)
		byID[rule.ID] = &rule
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	if err := r.attachSteps(ctx, byID); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepository) attachSteps(ctx context.Context, byID map[int64]*entity.ApprovalRule) error {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	ids := make([]interface{}, 0, len(byID))
	placeholders := ""
	for id := range byID {
		if placeholders != "" {
			placeholders += ", "
		}
		placeholders += "?"
		ids = append(ids, id)
	}

	query := `
		SELECT rule_id, sequence, approver_role, is_manager_approver, approval_limit, required
		FROM approval_rule_steps
		WHERE rule_id IN (` + placeholders + `)
		ORDER BY rule_id, sequence ASC`

	rows, err := exec.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("failed to list rule steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ruleID int64
		var step entity.RuleStep
		if err := rows.Scan(&ruleID, &step.Sequence, &step.ApproverRole, &step.IsManagerApprover, &step.ApprovalLimit, &step.Required); err != nil {
			return fmt.Errorf("failed to scan rule step: %w", err)
		}
		if rule, ok := byID[ruleID]; ok {
			rule.Steps = append(rule.Steps, step)
		}
	}
	return rows.Err()
}

// Verify interface compliance
var _ port.RuleRepository = (*RuleRepository)(nil)
