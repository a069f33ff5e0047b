package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CompanyRepository implements port.CompanyRepository. Thresholds live in a
// child table; conditional rule settings are flat columns on the company row.
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new company policy
func (r *CompanyRepository) Create(ctx context.Context, policy *entity.CompanyPolicy) error {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	query := `
		INSERT INTO companies (
			name, base_currency, sequential, require_manager_approval,
			conditional_enabled, percentage_enabled, percentage_value,
			specific_enabled, specific_approver_id, hybrid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		policy.Name,
		policy.BaseCurrency,
		policy.Sequential,
		policy.RequireManagerApproval,
		policy.ConditionalRules.Enabled,
		policy.ConditionalRules.PercentageRule.Enabled,
		policy.ConditionalRules.PercentageRule.Percentage,
		policy.ConditionalRules.SpecificApproverRule.Enabled,
		policy.ConditionalRules.SpecificApproverRule.ApproverID,
		policy.ConditionalRules.Hybrid,
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("name", policy.Name), zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	policy.ID = id

	return r.replaceThresholds(ctx, policy.ID, policy.Thresholds)
}

// GetPolicy retrieves a company's approval policy
func (r *CompanyRepository) GetPolicy(ctx context.Context, companyID int64) (*entity.CompanyPolicy, error) {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	query := `
		SELECT id, name, base_currency, sequential, require_manager_approval,
			conditional_enabled, percentage_enabled, percentage_value,
			specific_enabled, specific_approver_id, hybrid,
			created_at, updated_at
		FROM companies WHERE id = ?
	`

	var p entity.CompanyPolicy
	err := exec.QueryRowContext(ctx, query, companyID).Scan(
		&p.ID,
		&p.Name,
		&p.BaseCurrency,
		&p.Sequential,
		&p.RequireManagerApproval,
		&p.ConditionalRules.Enabled,
		&p.ConditionalRules.PercentageRule.Enabled,
		&p.ConditionalRules.PercentageRule.Percentage,
		&p.ConditionalRules.SpecificApproverRule.Enabled,
		&p.ConditionalRules.SpecificApproverRule.ApproverID,
		&p.ConditionalRules.Hybrid,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company policy", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get company policy: %w", err)
	}

	thresholdQuery := `
		SELECT amount, required_role
		FROM company_thresholds
		WHERE company_id = ?
		ORDER BY amount ASC
	`
	rows, err := exec.QueryContext(ctx, thresholdQuery, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thresholds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t entity.Threshold
		if err := rows.Scan(&t.Amount, &t.RequiredRole); err != nil {
			return nil, fmt.Errorf("failed to scan threshold: %w", err)
		}
		p.Thresholds = append(p.Thresholds, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

// UpdatePolicy replaces a company's policy, thresholds included.
func (r *CompanyRepository) UpdatePolicy(ctx context.Context, policy *entity.CompanyPolicy) error {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	query := `
		UPDATE companies
		SET name = ?, base_currency = ?, sequential = ?, require_manager_approval = ?,
			conditional_enabled = ?, percentage_enabled = ?, percentage_value = ?,
			specific_enabled = ?, specific_approver_id = ?, hybrid = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := exec.ExecContext(ctx, query,
		policy.Name,
		policy.BaseCurrency,
		policy.Sequential,
		policy.RequireManagerApproval,
		policy.ConditionalRules.Enabled,
		policy.ConditionalRules.PercentageRule.Enabled,
		policy.ConditionalRules.PercentageRule.Percentage,
		policy.ConditionalRules.SpecificApproverRule.Enabled,
		policy.ConditionalRules.SpecificApproverRule.ApproverID,
		policy.ConditionalRules.Hybrid,
		policy.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update company policy", zap.Int64("company_id", policy.ID), zap.Error(err))
		return fmt.Errorf("failed to update company policy: %w", err)
	}

	return r.replaceThresholds(ctx, policy.ID, policy.Thresholds)
}

func (r *CompanyRepository) replaceThresholds(ctx context.Context, companyID int64, thresholds []entity.Threshold) error {
	exec := sqlite.ExtractExecutor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM company_thresholds WHERE company_id = ?`, companyID); err != nil {
		return fmt.Errorf("failed to clear thresholds: %w", err)
	}

	for _, t := range thresholds {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO company_thresholds (company_id, amount, required_role) VALUES (?, ?, ?)`,
			companyID, t.Amount, t.RequiredRole,
		)
		if err != nil {
			return fmt.Errorf("failed to insert threshold: %w", err)
		}
	}
	return nil
}

// Verify interface compliance
var _ port.CompanyRepository = (*CompanyRepository)(nil)
