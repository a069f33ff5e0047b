package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// ActionRequest describes one approver action against a claim.
type ActionRequest struct {
	Actor    *entity.User
	Decision string
	Comment  string
	Override bool
}

// Outcome is the computed result of applying an action: the fields the
// caller must persist with a compare-and-swap against the claim's prior
// status and approval level.
type Outcome struct {
	Status          string
	CurrentApprover *int64
	ApprovalLevel   int
	RejectionReason string
	Action          entity.ApprovalAction
	EarlyFinalized  bool
}

// lifecycle builds the state machine for a single action evaluation. Guards
// close over the decision context: transitions for TriggerApprove are tried
// finalize-first, so early conditional resolution and chain exhaustion win
// over sequential advancement.
func lifecycle(current State, hasNext, earlyFinal, rejecting bool) StateMachine {
	b := NewBuilder()

	finalize := func(ctx context.Context) bool { return earlyFinal || !hasNext }
	advance := func(ctx context.Context) bool { return hasNext }
	approving := func(ctx context.Context) bool { return !rejecting }
	rejects := func(ctx context.Context) bool { return rejecting }

	for _, s := range []State{StatePending, StateInReview} {
		b.Configure(s).
			PermitIf(TriggerApprove, StateApproved, finalize).
			PermitIf(TriggerApprove, StateInReview, advance).
			Permit(TriggerReject, StateRejected).
			PermitIf(TriggerOverride, StateApproved, approving).
			PermitIf(TriggerOverride, StateRejected, rejects)
	}

	return b.Build(current)
}

// Act validates an approver action against the claim's current state and
// computes the resulting transition. It does not mutate the claim; the
// caller persists the Outcome atomically (§ concurrency: conditional write
// keyed on the prior status and approval level).
func Act(ctx context.Context, claim *entity.Claim, req ActionRequest, rules entity.ConditionalRules) (*Outcome, error) {
	if !claim.IsActionable() {
		return nil, fmt.Errorf("%w: claim %s is %s", ErrNotActionable, claim.Ref, claim.Status)
	}

	if req.Decision != entity.DecisionApproved && req.Decision != entity.DecisionRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, req.Decision)
	}

	if req.Override {
		if !req.Actor.IsAdmin() {
			return nil, fmt.Errorf("%w: override requires admin role", ErrNotAuthorized)
		}
	} else {
		if claim.CurrentApprover == nil || *claim.CurrentApprover != req.Actor.ID {
			return nil, fmt.Errorf("%w: user %d is not the current approver of claim %s", ErrNotAuthorized, req.Actor.ID, claim.Ref)
		}
	}

	action := entity.ApprovalAction{
		ClaimID:    claim.ID,
		ApproverID: req.Actor.ID,
		Decision:   req.Decision,
		Comment:    req.Comment,
		IsOverride: req.Override,
		Sequence:   len(claim.Approvals),
		CreatedAt:  time.Now(),
	}

	outcome := &Outcome{Action: action}

	hasNext := claim.ApprovalLevel+1 < len(claim.Chain)
	actions := append(append([]entity.ApprovalAction{}, claim.Approvals...), action)
	earlyFinal := req.Decision == entity.DecisionApproved && Satisfied(claim.Chain, actions, rules)

	machine := lifecycle(State(claim.Status), hasNext, earlyFinal, req.Decision == entity.DecisionRejected)

	trigger := TriggerApprove
	if req.Override {
		trigger = TriggerOverride
	} else if req.Decision == entity.DecisionRejected {
		trigger = TriggerReject
	}

	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	switch {
	case req.Override:
		// Override short-circuits all remaining steps.
		if req.Decision == entity.DecisionRejected {
			outcome.Status = entity.StatusRejected
			outcome.RejectionReason = req.Comment
		} else {
			outcome.Status = entity.StatusApproved
		}
		outcome.ApprovalLevel = claim.ApprovalLevel

	case req.Decision == entity.DecisionRejected:
		// Rejection is final regardless of chain position.
		outcome.Status = entity.StatusRejected
		outcome.RejectionReason = req.Comment
		outcome.ApprovalLevel = claim.ApprovalLevel

	case earlyFinal || !hasNext:
		outcome.Status = entity.StatusApproved
		outcome.ApprovalLevel = claim.ApprovalLevel
		outcome.EarlyFinalized = earlyFinal && hasNext

	default:
		next := claim.Chain[claim.ApprovalLevel+1]
		outcome.Status = entity.StatusInReview
		outcome.ApprovalLevel = claim.ApprovalLevel + 1
		outcome.CurrentApprover = &next.ApproverID
	}

	if outcome.Status != machine.State().String() {
		return nil, fmt.Errorf("%w: computed %s, machine at %s", ErrInvalidTransition, outcome.Status, machine.State())
	}

	return outcome, nil
}
