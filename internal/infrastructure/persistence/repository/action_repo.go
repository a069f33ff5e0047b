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

// ActionRepository implements port.ActionRepository. The ledger table has no
// UPDATE or DELETE paths; corrections only ever appear as new rows.
type ActionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *sql.DB, logger *zap.Logger) port.ActionRepository {
	return &ActionRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one approval action to the ledger
func (r *ActionRepository) Append(ctx context.Context, action *entity.ApprovalAction) error {
	query := `
		INSERT INTO expense_approvals (
			expense_id, approver_id, decision, comment, is_override, sequence
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExtractExecutor(ctx, r.db).ExecContext(ctx, query,
		action.ClaimID,
		action.ApproverID,
		action.Decision,
		action.Comment,
		action.IsOverride,
		action.Sequence,
	)
	if err != nil {
		r.logger.Error("Failed to append approval action",
			zap.Int64("claim_id", action.ClaimID),
			zap.Error(err))
		return fmt.Errorf("failed to append approval action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	action.ID = id
	return nil
}

// ListByClaim returns a claim's ledger in insertion order
func (r *ActionRepository) ListByClaim(ctx context.Context, claimID int64) ([]entity.ApprovalAction, error) {
	query := `
		SELECT id, expense_id, approver_id, decision, comment, is_override, sequence, created_at
		FROM expense_approvals
		WHERE expense_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExtractExecutor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list approval actions", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval actions: %w", err)
	}
	defer rows.Close()

	var actions []entity.ApprovalAction
	for rows.Next() {
		var a entity.ApprovalAction
		var comment sql.NullString
		if err := rows.Scan(&a.ID, &a.ClaimID, &a.ApproverID, &a.Decision, &comment, &a.IsOverride, &a.Sequence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval action: %w", err)
		}
		if comment.Valid {
			a.Comment = comment.String
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Verify interface compliance
var _ port.ActionRepository = (*ActionRepository)(nil)
