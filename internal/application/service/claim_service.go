package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Service-level failure modes surfaced to transport adapters.
var (
	ErrClaimNotFound   = errors.New("claim not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCompanyNotFound = errors.New("company not found")
	ErrNotWithdrawable = errors.New("only pending claims can be withdrawn by their submitter")
	ErrInvalidInput    = errors.New("invalid input")
)

// Notifier accepts domain events for asynchronous delivery. Enqueueing
// never blocks claim processing.
type Notifier interface {
	Enqueue(evt *event.Event)
}

// SubmitRequest carries a new expense claim.
type SubmitRequest struct {
	SubmitterID int64
	Amount      float64
	Currency    string
	Category    string
	Description string
	ExpenseDate time.Time
}

// CompanyStats aggregates claim counters for the dashboard.
type CompanyStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ApprovedAmount float64        `json:"approved_amount"`
}

// ClaimService routes submitted claims through their approval chain and
// resolves approver actions.
type ClaimService interface {
	Submit(ctx context.Context, req SubmitRequest) (*entity.Claim, error)
	Get(ctx context.Context, claimID int64) (*entity.Claim, error)
	ListMine(ctx context.Context, submitterID int64, filter port.ClaimFilter) ([]*entity.Claim, error)
	ListActionable(ctx context.Context, approverID int64) ([]*entity.Claim, error)
	Act(ctx context.Context, claimID, approverID int64, decision, comment string) (*entity.Claim, error)
	Override(ctx context.Context, claimID, adminID int64, decision, reason string) (*entity.Claim, error)
	Withdraw(ctx context.Context, claimID, submitterID int64) error
	Stats(ctx context.Context, companyID int64) (*CompanyStats, error)
}

type claimServiceImpl struct {
	claims     port.ClaimRepository
	actions    port.ActionRepository
	companies  port.CompanyRepository
	rules      port.RuleRepository
	users      port.UserDirectory
	normalizer port.CurrencyNormalizer
	chains     *approval.ChainBuilder
	txManager  port.TransactionManager
	notifier   Notifier
	logger     Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claims port.ClaimRepository,
	actions port.ActionRepository,
	companies port.CompanyRepository,
	rules port.RuleRepository,
	users port.UserDirectory,
	normalizer port.CurrencyNormalizer,
	chains *approval.ChainBuilder,
	txManager port.TransactionManager,
	notifier Notifier,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claims:     claims,
		actions:    actions,
		companies:  companies,
		rules:      rules,
		users:      users,
		normalizer: normalizer,
		chains:     chains,
		txManager:  txManager,
		notifier:   notifier,
		logger:     logger,
	}
}

// Submit normalizes the amount, resolves the applicable rule, builds the
// approval chain and persists the claim in its initial state. A normalizer
// failure prevents claim creation: a claim never exists without a defined
// base amount.
func (s *claimServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.Claim, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInput)
	}
	if !entity.ValidCategories[req.Category] {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, req.Category)
	}

	submitter, err := s.users.GetUser(ctx, req.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("lookup submitter: %w", err)
	}
	if submitter == nil {
		return nil, ErrUserNotFound
	}

	policy, err := s.companies.GetPolicy(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company policy: %w", err)
	}
	if policy == nil {
		return nil, approval.ErrNoCompanyPolicy
	}

	currency := strings.ToUpper(req.Currency)
	converted, rate, err := s.normalizer.Convert(ctx, req.Amount, currency, policy.BaseCurrency)
	if err != nil {
		s.logger.Error("Currency normalization failed, rejecting submission",
			"error", err, "currency", currency, "base_currency", policy.BaseCurrency)
		return nil, fmt.Errorf("normalize amount: %w", err)
	}

	companyRules, err := s.rules.ListActive(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load approval rules: %w", err)
	}

	resolution, err := approval.ResolveRule(policy, companyRules, converted, req.Category, submitter.Department)
	if err != nil {
		return nil, err
	}

	chain, err := s.chains.Build(ctx, resolution, submitter, converted)
	if err != nil {
		return nil, fmt.Errorf("build approval chain: %w", err)
	}

	now := time.Now()
	claim := &entity.Claim{
		Ref:             uuid.NewString(),
		CompanyID:       submitter.CompanyID,
		SubmitterID:     submitter.ID,
		Amount:          req.Amount,
		Currency:        currency,
		ConvertedAmount: converted,
		BaseCurrency:    policy.BaseCurrency,
		ExchangeRate:    rate,
		Category:        req.Category,
		Description:     req.Description,
		ExpenseDate:     req.ExpenseDate,
		Chain:           chain,
		ApprovalLevel:   0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if len(chain) == 0 {
		// Zero approval steps: the claim auto-approves at submission. This
		// is a documented policy outcome, not an error.
		claim.Status = entity.StatusApproved
		s.logger.Info("Claim auto-approved: empty approval chain",
			"ref", claim.Ref, "submitter_id", submitter.ID, "converted_amount", converted)
	} else {
		claim.Status = entity.StatusPending
		claim.CurrentApprover = &chain[0].ApproverID
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.notifier.Enqueue(event.New(event.TypeClaimSubmitted, claim.ID, claim.Ref, submitter.ID))
	if claim.Status == entity.StatusApproved {
		s.notifier.Enqueue(event.New(event.TypeClaimAutoApproved, claim.ID, claim.Ref, submitter.ID))
	} else {
		s.notifier.Enqueue(event.New(event.TypeApproverAssigned, claim.ID, claim.Ref, *claim.CurrentApprover))
	}

	s.logger.Info("Claim submitted",
		"ref", claim.Ref, "status", claim.Status, "chain_length", len(chain),
		"converted_amount", converted, "base_currency", policy.BaseCurrency)
	return claim, nil
}

// Get retrieves a claim with its audit ledger.
func (s *claimServiceImpl) Get(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, ErrClaimNotFound
	}

	actions, err := s.actions.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load audit ledger: %w", err)
	}
	claim.Approvals = actions
	return claim, nil
}

// ListMine lists a submitter's own claims.
func (s *claimServiceImpl) ListMine(ctx context.Context, submitterID int64, filter port.ClaimFilter) ([]*entity.Claim, error) {
	claims, err := s.claims.ListBySubmitter(ctx, submitterID, filter)
	if err != nil {
		s.logger.Error("Failed to list claims", "error", err, "submitter_id", submitterID)
		return nil, err
	}
	return claims, nil
}

// ListActionable lists claims awaiting the given approver's action.
func (s *claimServiceImpl) ListActionable(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	claims, err := s.claims.ListActionable(ctx, approverID)
	if err != nil {
		s.logger.Error("Failed to list actionable claims", "error", err, "approver_id", approverID)
		return nil, err
	}
	return claims, nil
}

// Act applies a regular approver decision to a claim.
func (s *claimServiceImpl) Act(ctx context.Context, claimID, approverID int64, decision, comment string) (*entity.Claim, error) {
	return s.apply(ctx, claimID, approverID, decision, comment, false)
}

// Override applies an admin decision that bypasses the current step and
// short-circuits all remaining steps.
func (s *claimServiceImpl) Override(ctx context.Context, claimID, adminID int64, decision, reason string) (*entity.Claim, error) {
	return s.apply(ctx, claimID, adminID, decision, reason, true)
}

func (s *claimServiceImpl) apply(ctx context.Context, claimID, actorID int64, decision, comment string, override bool) (*entity.Claim, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}

	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("lookup actor: %w", err)
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	policy, err := s.companies.GetPolicy(ctx, claim.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company policy: %w", err)
	}
	if policy == nil {
		return nil, approval.ErrNoCompanyPolicy
	}

	outcome, err := approval.Act(ctx, claim, approval.ActionRequest{
		Actor:    actor,
		Decision: decision,
		Comment:  comment,
		Override: override,
	}, policy.ConditionalRules)
	if err != nil {
		return nil, err
	}

	// The conditional write and the ledger append commit together: either
	// this action wins the compare-and-swap and is recorded, or the whole
	// attempt rolls back with ErrConflict.
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		upd := port.StateUpdate{
			Status:          outcome.Status,
			CurrentApprover: outcome.CurrentApprover,
			ApprovalLevel:   outcome.ApprovalLevel,
			RejectionReason: outcome.RejectionReason,
		}
		if err := s.claims.UpdateState(txCtx, claim.ID, claim.Status, claim.ApprovalLevel, upd); err != nil {
			return err
		}

		action := outcome.Action
		if err := s.actions.Append(txCtx, &action); err != nil {
			return fmt.Errorf("append audit ledger: %w", err)
		}
		outcome.Action = action
		return nil
	})
	if err != nil {
		if errors.Is(err, port.ErrConflict) {
			s.logger.Info("Approval action lost compare-and-swap race",
				"ref", claim.Ref, "actor_id", actorID, "level", claim.ApprovalLevel)
		}
		return nil, err
	}

	s.notifyOutcome(claim, outcome)

	s.logger.Info("Approval action applied",
		"ref", claim.Ref, "actor_id", actorID, "decision", decision,
		"override", override, "new_status", outcome.Status,
		"early_finalized", outcome.EarlyFinalized)

	return s.Get(ctx, claimID)
}

// notifyOutcome emits the events for a committed transition. Failures are
// the dispatcher's problem; nothing here can undo the transition.
func (s *claimServiceImpl) notifyOutcome(claim *entity.Claim, outcome *approval.Outcome) {
	switch outcome.Status {
	case entity.StatusApproved:
		s.notifier.Enqueue(event.New(event.TypeClaimApproved, claim.ID, claim.Ref, claim.SubmitterID))
	case entity.StatusRejected:
		evt := event.New(event.TypeClaimRejected, claim.ID, claim.Ref, claim.SubmitterID).
			WithPayload("reason", outcome.RejectionReason)
		s.notifier.Enqueue(evt)
	case entity.StatusInReview:
		if outcome.CurrentApprover != nil {
			s.notifier.Enqueue(event.New(event.TypeApproverAssigned, claim.ID, claim.Ref, *outcome.CurrentApprover))
		}
	}
}

// Withdraw removes a pending claim owned by the submitter.
func (s *claimServiceImpl) Withdraw(ctx context.Context, claimID, submitterID int64) error {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return fmt.Errorf("get claim: %w", err)
	}
	if claim == nil || claim.SubmitterID != submitterID {
		return ErrClaimNotFound
	}
	if claim.Status != entity.StatusPending {
		return ErrNotWithdrawable
	}

	deleted, err := s.claims.DeletePending(ctx, claimID, submitterID)
	if err != nil {
		return fmt.Errorf("withdraw claim: %w", err)
	}
	if !deleted {
		// Status moved between read and delete.
		return port.ErrConflict
	}

	s.notifier.Enqueue(event.New(event.TypeClaimWithdrawn, claim.ID, claim.Ref, submitterID))
	s.logger.Info("Claim withdrawn", "ref", claim.Ref, "submitter_id", submitterID)
	return nil
}

// Stats aggregates company-level claim counters.
func (s *claimServiceImpl) Stats(ctx context.Context, companyID int64) (*CompanyStats, error) {
	byStatus, err := s.claims.CountByStatus(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	approvedAmount, err := s.claims.SumApproved(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("sum approved claims: %w", err)
	}

	return &CompanyStats{
		Total:          total,
		ByStatus:       byStatus,
		ApprovedAmount: approvedAmount,
	}, nil
}
