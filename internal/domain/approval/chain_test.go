package approval

import (
	"context"
	"testing"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

type mockDirectory struct {
	getUserFunc    func(ctx context.Context, id int64) (*entity.User, error)
	findByRoleFunc func(ctx context.Context, companyID int64, role string) ([]*entity.User, error)
}

func (m *mockDirectory) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDirectory) FindByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
	if m.findByRoleFunc != nil {
		return m.findByRoleFunc(ctx, companyID, role)
	}
	return nil, nil
}

func activeUser(id int64, role string, limit float64) *entity.User {
	return &entity.User{ID: id, Role: role, CompanyID: 1, ApprovalLimit: limit, IsActive: true}
}

func TestChainBuilder_BindsManagerStep(t *testing.T) {
	managerID := int64(42)
	submitter := &entity.User{ID: 10, CompanyID: 1, ManagerID: &managerID}

	dir := &mockDirectory{
		getUserFunc: func(ctx context.Context, id int64) (*entity.User, error) {
			return activeUser(id, entity.RoleManager, 5000), nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleManager, IsManagerApprover: true, Required: true},
	}}

	chain, err := NewChainBuilder(dir, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ApproverID != managerID {
		t.Errorf("chain = %+v, want single step bound to manager %d", chain, managerID)
	}
}

func TestChainBuilder_DropsStepWithoutManager(t *testing.T) {
	submitter := &entity.User{ID: 10, CompanyID: 1} // no manager

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleManager, IsManagerApprover: true, Required: true},
	}}

	chain, err := NewChainBuilder(&mockDirectory{}, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %+v, want empty (step dropped)", chain)
	}
}

func TestChainBuilder_EscalatesToAdmin(t *testing.T) {
	submitter := &entity.User{ID: 10, CompanyID: 1} // no manager

	dir := &mockDirectory{
		findByRoleFunc: func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
			if role == entity.RoleAdmin {
				return []*entity.User{activeUser(99, entity.RoleAdmin, 0)}, nil
			}
			return nil, nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleManager, IsManagerApprover: true, Required: true},
	}}

	chain, err := NewChainBuilder(dir, EscalateToAdmin).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ApproverID != 99 {
		t.Errorf("chain = %+v, want step escalated to admin 99", chain)
	}
}

func TestChainBuilder_DeterministicSelection(t *testing.T) {
	submitter := &entity.User{ID: 10, CompanyID: 1}

	dir := &mockDirectory{
		findByRoleFunc: func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
			return []*entity.User{
				activeUser(7, entity.RoleFinance, 5000),
				activeUser(3, entity.RoleFinance, 5000),
				activeUser(5, entity.RoleFinance, 5000),
			}, nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleFinance, Required: true},
	}}

	chain, err := NewChainBuilder(dir, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ApproverID != 3 {
		t.Errorf("chain = %+v, want lowest user ID 3", chain)
	}
}

func TestChainBuilder_SkipsInsufficientLimit(t *testing.T) {
	submitter := &entity.User{ID: 10, CompanyID: 1}

	dir := &mockDirectory{
		findByRoleFunc: func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
			return []*entity.User{
				activeUser(3, entity.RoleFinance, 500), // below claim amount
				activeUser(7, entity.RoleFinance, 5000),
			}, nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleFinance, Required: true},
	}}

	chain, err := NewChainBuilder(dir, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ApproverID != 7 {
		t.Errorf("chain = %+v, want user 7 (user 3 limit too low)", chain)
	}
}

func TestChainBuilder_NeverBindsSubmitter(t *testing.T) {
	submitter := activeUser(3, entity.RoleFinance, 5000)

	dir := &mockDirectory{
		findByRoleFunc: func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
			return []*entity.User{submitter}, nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 1, ApproverRole: entity.RoleFinance, Required: true},
	}}

	chain, err := NewChainBuilder(dir, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %+v, submitter must not approve their own claim", chain)
	}
}

func TestChainBuilder_SortsBySequence(t *testing.T) {
	submitter := &entity.User{ID: 10, CompanyID: 1}

	dir := &mockDirectory{
		findByRoleFunc: func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
			switch role {
			case entity.RoleFinance:
				return []*entity.User{activeUser(20, entity.RoleFinance, 0)}, nil
			case entity.RoleDirector:
				return []*entity.User{activeUser(30, entity.RoleDirector, 0)}, nil
			}
			return nil, nil
		},
	}

	res := &Resolution{Steps: []entity.RuleStep{
		{Sequence: 5, ApproverRole: entity.RoleDirector, Required: true},
		{Sequence: 2, ApproverRole: entity.RoleFinance, Required: true},
	}}

	chain, err := NewChainBuilder(dir, DropUnassignableStep).Build(context.Background(), res, submitter, 1000)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != 2 || chain[0].Sequence != 2 || chain[1].Sequence != 5 {
		t.Errorf("chain = %+v, want ascending sequence order", chain)
	}
}
