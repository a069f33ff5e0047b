package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const claimColumns = `
	id, ref, company_id, submitter_id, amount, currency,
	converted_amount, base_currency, exchange_rate, category, description,
	expense_date, status, current_approver, approval_level, chain,
	rejection_reason, created_at, updated_at
`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new claim with its frozen approval chain.
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	chainJSON, err := json.Marshal(claim.Chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}

	query := `
		INSERT INTO expenses (
			ref, company_id, submitter_id, amount, currency,
			converted_amount, base_currency, exchange_rate, category, description,
			expense_date, status, current_approver, approval_level, chain, rejection_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExtractExecutor(ctx, r.db).ExecContext(ctx, query,
		claim.Ref,
		claim.CompanyID,
		claim.SubmitterID,
		claim.Amount,
		claim.Currency,
		claim.ConvertedAmount,
		claim.BaseCurrency,
		claim.ExchangeRate,
		claim.Category,
		claim.Description,
		claim.ExpenseDate,
		claim.Status,
		nullableID(claim.CurrentApprover),
		claim.ApprovalLevel,
		string(chainJSON),
		claim.RejectionReason,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("ref", claim.Ref), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM expenses WHERE id = ?`
	return r.scanOne(sqlite.ExtractExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByRef retrieves a claim by its external reference
func (r *ClaimRepository) GetByRef(ctx context.Context, ref string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM expenses WHERE ref = ?`
	return r.scanOne(sqlite.ExtractExecutor(ctx, r.db).QueryRowContext(ctx, query, ref))
}

// ListBySubmitter lists a submitter's claims, newest first.
func (r *ClaimRepository) ListBySubmitter(ctx context.Context, submitterID int64, filter port.ClaimFilter) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM expenses WHERE submitter_id = ?`
	args := []interface{}{submitterID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		query += ` AND expense_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND expense_date <= ?`
		args = append(args, *filter.To)
	}

	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	return r.scanMany(ctx, query, args...)
}

// ListActionable lists claims awaiting the given approver.
func (r *ClaimRepository) ListActionable(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + `
		FROM expenses
		WHERE current_approver = ? AND status IN (?, ?)
		ORDER BY created_at ASC`
	return r.scanMany(ctx, query, approverID, entity.StatusPending, entity.StatusInReview)
}

// ListApproved lists approved claims finalized within the window.
func (r *ClaimRepository) ListApproved(ctx context.Context, companyID int64, from, to time.Time) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + `
		FROM expenses
		WHERE company_id = ? AND status = ? AND updated_at >= ? AND updated_at <= ?
		ORDER BY updated_at ASC`
	return r.scanMany(ctx, query, companyID, entity.StatusApproved, from, to)
}

// UpdateState applies one approval transition guarded by the expected
// status and approval level. Zero affected rows means another action won
// the race; the caller gets ErrConflict and nothing is written.
func (r *ClaimRepository) UpdateState(ctx context.Context, claimID int64, expectedStatus string, expectedLevel int, upd port.StateUpdate) error {
	query := `
		UPDATE expenses
		SET status = ?, current_approver = ?, approval_level = ?,
			rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND approval_level = ?
	`

	result, err := sqlite.ExtractExecutor(ctx, r.db).ExecContext(ctx, query,
		upd.Status,
		nullableID(upd.CurrentApprover),
		upd.ApprovalLevel,
		upd.RejectionReason,
		claimID,
		expectedStatus,
		expectedLevel,
	)
	if err != nil {
		r.logger.Error("Failed to update claim state", zap.Int64("id", claimID), zap.Error(err))
		return fmt.Errorf("failed to update claim state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return port.ErrConflict
	}
	return nil
}

// DeletePending removes a pending claim owned by the submitter. The status
// guard in the query keeps withdrawal race-safe.
func (r *ClaimRepository) DeletePending(ctx context.Context, claimID, submitterID int64) (bool, error) {
	query := `DELETE FROM expenses WHERE id = ? AND submitter_id = ? AND status = ?`

	result, err := sqlite.ExtractExecutor(ctx, r.db).ExecContext(ctx, query, claimID, submitterID, entity.StatusPending)
	if err != nil {
		r.logger.Error("Failed to delete claim", zap.Int64("id", claimID), zap.Error(err))
		return false, fmt.Errorf("failed to delete claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// CountByStatus returns claim counts per status for a company.
func (r *ClaimRepository) CountByStatus(ctx context.Context, companyID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM expenses WHERE company_id = ? GROUP BY status`

	rows, err := sqlite.ExtractExecutor(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// SumApproved returns the approved base-currency total for a company.
func (r *ClaimRepository) SumApproved(ctx context.Context, companyID int64) (float64, error) {
	query := `SELECT COALESCE(SUM(converted_amount), 0) FROM expenses WHERE company_id = ? AND status = ?`

	var total float64
	err := sqlite.ExtractExecutor(ctx, r.db).QueryRowContext(ctx, query, companyID, entity.StatusApproved).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum approved claims: %w", err)
	}
	return total, nil
}

func (r *ClaimRepository) scanOne(row *sql.Row) (*entity.Claim, error) {
	claim, err := scanClaim(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan claim", zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

func (r *ClaimRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := sqlite.ExtractExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func scanClaim(scan func(dest ...interface{}) error) (*entity.Claim, error) {
	var claim entity.Claim
	var currentApprover sql.NullInt64
	var rejectionReason sql.NullString
	var chainJSON string

	err := scan(
		&claim.ID,
		&claim.Ref,
		&claim.CompanyID,
		&claim.SubmitterID,
		&claim.Amount,
		&claim.Currency,
		&claim.ConvertedAmount,
		&claim.BaseCurrency,
		&claim.ExchangeRate,
		&claim.Category,
		&claim.Description,
		&claim.ExpenseDate,
		&claim.Status,
		&currentApprover,
		&claim.ApprovalLevel,
		&chainJSON,
		&rejectionReason,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentApprover.Valid {
		claim.CurrentApprover = &currentApprover.Int64
	}
	if rejectionReason.Valid {
		claim.RejectionReason = rejectionReason.String
	}
	if chainJSON != "" {
		if err := json.Unmarshal([]byte(chainJSON), &claim.Chain); err != nil {
			return nil, fmt.Errorf("unmarshal chain: %w", err)
		}
	}

	return &claim, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
