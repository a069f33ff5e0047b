package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

func reviewClaim(chain []entity.ChainStep, level int, status string) *entity.Claim {
	c := &entity.Claim{
		ID:            1,
		Ref:           "clm-test",
		CompanyID:     1,
		SubmitterID:   10,
		Status:        status,
		Chain:         chain,
		ApprovalLevel: level,
	}
	if level < len(chain) && !entity.IsTerminalStatus(status) {
		c.CurrentApprover = &chain[level].ApproverID
	}
	return c
}

func TestAct_SequentialApprovalFinalizesSingleStep(t *testing.T) {
	claim := reviewClaim(threeStepChain()[:1], 0, entity.StatusPending)
	actor := activeUser(11, entity.RoleManager, 5000)

	out, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, entity.ConditionalRules{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if out.Status != entity.StatusApproved {
		t.Errorf("Status = %s, want approved", out.Status)
	}
	if out.CurrentApprover != nil {
		t.Error("CurrentApprover must be nil on terminal transition")
	}
}

func TestAct_ApprovalAdvancesToNextStep(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 0, entity.StatusPending)
	actor := activeUser(11, entity.RoleManager, 5000)

	out, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, entity.ConditionalRules{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if out.Status != entity.StatusInReview {
		t.Errorf("Status = %s, want in_review", out.Status)
	}
	if out.ApprovalLevel != 1 {
		t.Errorf("ApprovalLevel = %d, want 1", out.ApprovalLevel)
	}
	if out.CurrentApprover == nil || *out.CurrentApprover != 12 {
		t.Errorf("CurrentApprover = %v, want 12", out.CurrentApprover)
	}
}

func TestAct_RejectionIsFinalMidChain(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 1, entity.StatusInReview)
	claim.Approvals = approvals(11)
	actor := activeUser(12, entity.RoleFinance, 5000)

	out, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionRejected, Comment: "no receipt"}, entity.ConditionalRules{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if out.Status != entity.StatusRejected {
		t.Errorf("Status = %s, want rejected", out.Status)
	}
	if out.RejectionReason != "no receipt" {
		t.Errorf("RejectionReason = %q, want comment", out.RejectionReason)
	}
	if out.CurrentApprover != nil {
		t.Error("CurrentApprover must be nil after rejection")
	}
}

func TestAct_HybridQuorumFinalizesEarly(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 1, entity.StatusInReview)
	claim.Approvals = approvals(11)
	actor := activeUser(12, entity.RoleFinance, 5000)

	rules := entity.ConditionalRules{
		Enabled:              true,
		Hybrid:               true,
		PercentageRule:       entity.PercentageRule{Enabled: true, Percentage: 60},
		SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 999},
	}

	out, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, rules)
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if out.Status != entity.StatusApproved {
		t.Errorf("Status = %s, want approved (2 of 3 is 66%% >= 60%%)", out.Status)
	}
	if !out.EarlyFinalized {
		t.Error("EarlyFinalized should be true: third step never consulted")
	}
}

func TestAct_TerminalClaimNotActionable(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 2, entity.StatusRejected)
	actor := activeUser(13, entity.RoleDirector, 5000)

	_, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, entity.ConditionalRules{})
	if !errors.Is(err, ErrNotActionable) {
		t.Errorf("Act() error = %v, want ErrNotActionable", err)
	}
}

func TestAct_WrongApproverNotAuthorized(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 0, entity.StatusPending)
	actor := activeUser(12, entity.RoleFinance, 5000) // step 0 belongs to 11

	_, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, entity.ConditionalRules{})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Act() error = %v, want ErrNotAuthorized", err)
	}
}

func TestAct_InvalidDecision(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 0, entity.StatusPending)
	actor := activeUser(11, entity.RoleManager, 5000)

	_, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: "maybe"}, entity.ConditionalRules{})
	if !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("Act() error = %v, want ErrInvalidDecision", err)
	}
}

func TestAct_OverrideByAdmin(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 0, entity.StatusPending)
	admin := activeUser(99, entity.RoleAdmin, 0)

	tests := []struct {
		name       string
		decision   string
		wantStatus string
	}{
		{"override approve", entity.DecisionApproved, entity.StatusApproved},
		{"override reject", entity.DecisionRejected, entity.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Act(context.Background(), claim, ActionRequest{Actor: admin, Decision: tt.decision, Comment: "forced", Override: true}, entity.ConditionalRules{})
			if err != nil {
				t.Fatalf("Act() error = %v", err)
			}
			if out.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", out.Status, tt.wantStatus)
			}
			if !out.Action.IsOverride {
				t.Error("ledger entry must be tagged as an override")
			}
			if out.CurrentApprover != nil {
				t.Error("override must clear the current approver")
			}
		})
	}
}

func TestAct_OverrideRequiresAdmin(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 0, entity.StatusPending)
	manager := activeUser(11, entity.RoleManager, 5000)

	_, err := Act(context.Background(), claim, ActionRequest{Actor: manager, Decision: entity.DecisionApproved, Override: true}, entity.ConditionalRules{})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Act() error = %v, want ErrNotAuthorized", err)
	}
}

func TestAct_LedgerSequenceIncrements(t *testing.T) {
	claim := reviewClaim(threeStepChain(), 1, entity.StatusInReview)
	claim.Approvals = approvals(11)
	actor := activeUser(12, entity.RoleFinance, 5000)

	out, err := Act(context.Background(), claim, ActionRequest{Actor: actor, Decision: entity.DecisionApproved}, entity.ConditionalRules{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if out.Action.Sequence != 1 {
		t.Errorf("Action.Sequence = %d, want 1", out.Action.Sequence)
	}
}
