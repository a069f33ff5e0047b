package approval

import (
	"testing"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

func threeStepChain() []entity.ChainStep {
	return []entity.ChainStep{
		{Sequence: 1, ApproverID: 11},
		{Sequence: 2, ApproverID: 12},
		{Sequence: 3, ApproverID: 13},
	}
}

func approvals(ids ...int64) []entity.ApprovalAction {
	out := make([]entity.ApprovalAction, 0, len(ids))
	for i, id := range ids {
		out = append(out, entity.ApprovalAction{ApproverID: id, Decision: entity.DecisionApproved, Sequence: i})
	}
	return out
}

func TestSatisfied(t *testing.T) {
	tests := []struct {
		name    string
		chain   []entity.ChainStep
		actions []entity.ApprovalAction
		rules   entity.ConditionalRules
		want    bool
	}{
		{
			name:    "disabled rules never satisfy",
			chain:   threeStepChain(),
			actions: approvals(11, 12, 13),
			rules:   entity.ConditionalRules{},
			want:    false,
		},
		{
			name:    "specific approver approved",
			chain:   threeStepChain(),
			actions: approvals(12),
			rules: entity.ConditionalRules{
				Enabled:              true,
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: true,
		},
		{
			name:    "specific approver has not acted",
			chain:   threeStepChain(),
			actions: approvals(11),
			rules: entity.ConditionalRules{
				Enabled:              true,
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: false,
		},
		{
			name:    "specific approver rejection does not count",
			chain:   threeStepChain(),
			actions: []entity.ApprovalAction{{ApproverID: 12, Decision: entity.DecisionRejected}},
			rules: entity.ConditionalRules{
				Enabled:              true,
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: false,
		},
		{
			name:    "quorum reached at 66 percent of 3",
			chain:   threeStepChain(),
			actions: approvals(11, 12),
			rules: entity.ConditionalRules{
				Enabled:        true,
				PercentageRule: entity.PercentageRule{Enabled: true, Percentage: 60},
			},
			want: true,
		},
		{
			name:    "quorum not reached at 33 percent of 3",
			chain:   threeStepChain(),
			actions: approvals(11),
			rules: entity.ConditionalRules{
				Enabled:        true,
				PercentageRule: entity.PercentageRule{Enabled: true, Percentage: 60},
			},
			want: false,
		},
		{
			name:    "hybrid satisfied by quorum without specific approver",
			chain:   threeStepChain(),
			actions: approvals(11, 13),
			rules: entity.ConditionalRules{
				Enabled:              true,
				Hybrid:               true,
				PercentageRule:       entity.PercentageRule{Enabled: true, Percentage: 60},
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: true,
		},
		{
			name:    "hybrid satisfied by specific approver without quorum",
			chain:   threeStepChain(),
			actions: approvals(12),
			rules: entity.ConditionalRules{
				Enabled:              true,
				Hybrid:               true,
				PercentageRule:       entity.PercentageRule{Enabled: true, Percentage: 60},
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: true,
		},
		{
			name:    "non-hybrid with both enabled: specific approver decides, quorum ignored",
			chain:   threeStepChain(),
			actions: approvals(11, 13), // quorum met, specific approver absent
			rules: entity.ConditionalRules{
				Enabled:              true,
				PercentageRule:       entity.PercentageRule{Enabled: true, Percentage: 60},
				SpecificApproverRule: entity.SpecificApproverRule{Enabled: true, ApproverID: 12},
			},
			want: false,
		},
		{
			name:    "empty chain never reaches quorum",
			chain:   nil,
			actions: approvals(11),
			rules: entity.ConditionalRules{
				Enabled:        true,
				PercentageRule: entity.PercentageRule{Enabled: true, Percentage: 60},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Satisfied(tt.chain, tt.actions, tt.rules); got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}
