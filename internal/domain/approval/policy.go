package approval

import "github.com/expenseflow/expenseflow/internal/domain/entity"

// Satisfied evaluates the conditional resolution rules against the actions
// recorded so far. It never rejects a claim; it only reports whether the
// claim may finalize as approved before the chain completes.
//
// Evaluation order: the specific-approver rule first, then the percentage
// quorum. With hybrid set, either satisfies. Without hybrid and with both
// sub-rules enabled the specific-approver rule alone decides.
func Satisfied(chain []entity.ChainStep, actions []entity.ApprovalAction, rules entity.ConditionalRules) bool {
	if !rules.Enabled {
		return false
	}

	specific := rules.SpecificApproverRule.Enabled && approvedBy(actions, rules.SpecificApproverRule.ApproverID)
	quorum := rules.PercentageRule.Enabled && quorumReached(chain, actions, rules.PercentageRule.Percentage)

	if rules.Hybrid {
		return specific || quorum
	}
	if rules.SpecificApproverRule.Enabled {
		return specific
	}
	return quorum
}

func approvedBy(actions []entity.ApprovalAction, approverID int64) bool {
	for _, a := range actions {
		if a.Decision == entity.DecisionApproved && a.ApproverID == approverID {
			return true
		}
	}
	return false
}

func quorumReached(chain []entity.ChainStep, actions []entity.ApprovalAction, percentage int) bool {
	if len(chain) == 0 {
		return false
	}
	approved := 0
	for _, a := range actions {
		if a.Decision == entity.DecisionApproved {
			approved++
		}
	}
	// approved/len(chain)*100 >= percentage, in integer arithmetic
	return approved*100 >= percentage*len(chain)
}
