package approval

import (
	"context"
	"fmt"
	"sort"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// AssignmentPolicy decides what happens to a step that binds to no eligible
// approver. The default drops the step so a chain never stalls on an
// unassignable position; EscalateToAdmin rebinds it to an active admin.
type AssignmentPolicy int

const (
	DropUnassignableStep AssignmentPolicy = iota
	EscalateToAdmin
)

// Directory supplies candidate approvers. Read-only to the engine.
type Directory interface {
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	FindByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error)
}

// ChainBuilder binds the abstract steps of a Resolution to concrete active
// approvers with sufficient approval limits.
type ChainBuilder struct {
	directory Directory
	policy    AssignmentPolicy
}

// NewChainBuilder creates a chain builder with the given assignment policy.
func NewChainBuilder(directory Directory, policy AssignmentPolicy) *ChainBuilder {
	return &ChainBuilder{directory: directory, policy: policy}
}

// Build expands a resolution into an ordered approver chain for a claim of
// the given base-currency amount. Binding is deterministic: among equally
// eligible candidates the lowest user ID wins. An empty result means the
// claim has zero approval steps and the caller must approve it immediately.
func (cb *ChainBuilder) Build(ctx context.Context, res *Resolution, submitter *entity.User, amount float64) ([]entity.ChainStep, error) {
	chain := make([]entity.ChainStep, 0, len(res.Steps))

	for _, step := range res.Steps {
		approver, err := cb.bind(ctx, step, submitter, amount)
		if err != nil {
			return nil, err
		}
		if approver == nil {
			continue // unassignable, dropped
		}
		chain = append(chain, entity.ChainStep{
			Sequence:          step.Sequence,
			ApproverID:        approver.ID,
			ApproverRole:      approver.Role,
			IsManagerApprover: step.IsManagerApprover,
		})
	}

	sort.Slice(chain, func(i, j int) bool { return chain[i].Sequence < chain[j].Sequence })
	return chain, nil
}

func (cb *ChainBuilder) bind(ctx context.Context, step entity.RuleStep, submitter *entity.User, amount float64) (*entity.User, error) {
	if step.IsManagerApprover {
		if submitter.ManagerID == nil {
			return cb.fallback(ctx, submitter, amount)
		}
		manager, err := cb.directory.GetUser(ctx, *submitter.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("lookup manager %d: %w", *submitter.ManagerID, err)
		}
		if manager == nil || !manager.CanApprove(amount) {
			return cb.fallback(ctx, submitter, amount)
		}
		return manager, nil
	}

	approver, err := cb.pick(ctx, submitter, step.ApproverRole, amount)
	if err != nil {
		return nil, err
	}
	if approver == nil {
		return cb.fallback(ctx, submitter, amount)
	}
	return approver, nil
}

// fallback applies the assignment policy to an unassignable step.
func (cb *ChainBuilder) fallback(ctx context.Context, submitter *entity.User, amount float64) (*entity.User, error) {
	if cb.policy != EscalateToAdmin {
		return nil, nil
	}
	return cb.pick(ctx, submitter, entity.RoleAdmin, amount)
}

// pick selects the lowest-ID active user with the role, enough approval
// limit, and who is not the submitter.
func (cb *ChainBuilder) pick(ctx context.Context, submitter *entity.User, role string, amount float64) (*entity.User, error) {
	candidates, err := cb.directory.FindByRole(ctx, submitter.CompanyID, role)
	if err != nil {
		return nil, fmt.Errorf("find %s approvers: %w", role, err)
	}

	var best *entity.User
	for _, u := range candidates {
		if u.ID == submitter.ID || !u.CanApprove(amount) {
			continue
		}
		if best == nil || u.ID < best.ID {
			best = u
		}
	}
	return best, nil
}
