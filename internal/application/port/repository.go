package port

import (
	"context"
	"errors"
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// ErrConflict is returned by ClaimRepository.UpdateState when the
// compare-and-swap lost the race: the claim's status or approval level no
// longer matches the expected values. The caller may retry the full
// read-act cycle once; the engine never retries on its own.
var ErrConflict = errors.New("claim state changed concurrently")

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Status   string
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// StateUpdate carries the claim fields mutated by one approval action.
type StateUpdate struct {
	Status          string
	CurrentApprover *int64
	ApprovalLevel   int
	RejectionReason string
}

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	GetByRef(ctx context.Context, ref string) (*entity.Claim, error)
	ListBySubmitter(ctx context.Context, submitterID int64, filter ClaimFilter) ([]*entity.Claim, error)
	ListActionable(ctx context.Context, approverID int64) ([]*entity.Claim, error)
	ListApproved(ctx context.Context, companyID int64, from, to time.Time) ([]*entity.Claim, error)

	// UpdateState applies the state update only when the claim's current
	// status and approval level equal the expected values; otherwise it
	// returns ErrConflict without writing.
	UpdateState(ctx context.Context, claimID int64, expectedStatus string, expectedLevel int, upd StateUpdate) error

	// DeletePending removes a pending claim owned by the submitter.
	DeletePending(ctx context.Context, claimID, submitterID int64) (bool, error)

	CountByStatus(ctx context.Context, companyID int64) (map[string]int, error)
	SumApproved(ctx context.Context, companyID int64) (float64, error)
}

// ActionRepository defines persistence operations for the audit ledger.
// Append-only: no update or delete operations exist.
type ActionRepository interface {
	Append(ctx context.Context, action *entity.ApprovalAction) error
	ListByClaim(ctx context.Context, claimID int64) ([]entity.ApprovalAction, error)
}

// CompanyRepository defines persistence operations for CompanyPolicy
type CompanyRepository interface {
	Create(ctx context.Context, policy *entity.CompanyPolicy) error
	GetPolicy(ctx context.Context, companyID int64) (*entity.CompanyPolicy, error)
	UpdatePolicy(ctx context.Context, policy *entity.CompanyPolicy) error
}

// RuleRepository defines persistence operations for ApprovalRule
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.ApprovalRule) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	ListActive(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
	List(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
}

// UserDirectory supplies approver identities. Read-only to the engine;
// satisfies the chain builder's Directory dependency.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	FindByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error)
}

// TransactionManager provides transaction boundary management
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
