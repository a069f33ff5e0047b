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

const userColumns = `
	id, name, email, role, department, company_id,
	manager_id, approval_limit, is_active, created_at, updated_at
`

// UserRepository implements port.UserDirectory
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserDirectory {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(sqlite.ExtractExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindByRole lists a company's active users holding the role, ID ascending.
// The chain builder relies on this order for deterministic approver picks.
func (r *UserRepository) FindByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = ? AND role = ? AND is_active = 1 ORDER BY id ASC`

	rows, err := sqlite.ExtractExecutor(ctx, r.db).QueryContext(ctx, query, companyID, role)
	if err != nil {
		r.logger.Error("Failed to find users by role", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("failed to find users by role: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(scan func(dest ...interface{}) error) (*entity.User, error) {
	var user entity.User
	var managerID sql.NullInt64

	err := scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Department,
		&user.CompanyID,
		&managerID,
		&user.ApprovalLimit,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserDirectory = (*UserRepository)(nil)
