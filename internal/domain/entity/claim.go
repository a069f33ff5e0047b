package entity

import "time"

// Claim represents a submitted expense moving through its approval chain.
// The chain is computed once at submission and frozen for the claim's
// lifetime; only approval actions mutate the claim afterwards.
type Claim struct {
	ID              int64            `json:"id"`
	Ref             string           `json:"ref"`
	CompanyID       int64            `json:"company_id"`
	SubmitterID     int64            `json:"submitter_id"`
	Amount          float64          `json:"amount"`
	Currency        string           `json:"currency"`
	ConvertedAmount float64          `json:"converted_amount"`
	BaseCurrency    string           `json:"base_currency"`
	ExchangeRate    float64          `json:"exchange_rate"`
	Category        string           `json:"category"`
	Description     string           `json:"description"`
	ExpenseDate     time.Time        `json:"expense_date"`
	Status          string           `json:"status"`
	CurrentApprover *int64           `json:"current_approver,omitempty"`
	ApprovalLevel   int              `json:"approval_level"`
	Chain           []ChainStep      `json:"chain"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Approvals       []ApprovalAction `json:"approvals,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ChainStep is one position in a claim's frozen approval chain, bound to a
// concrete approver at submission time.
type ChainStep struct {
	Sequence          int    `json:"sequence"`
	ApproverID        int64  `json:"approver_id"`
	ApproverRole      string `json:"approver_role"`
	IsManagerApprover bool   `json:"is_manager_approver,omitempty"`
}

// ApprovalAction is a single approve/reject record in the audit ledger.
// Append-only: never edited or removed once written.
type ApprovalAction struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	ApproverID int64     `json:"approver_id"`
	Decision   string    `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	IsOverride bool      `json:"is_override,omitempty"`
	Sequence   int       `json:"sequence"`
	CreatedAt  time.Time `json:"created_at"`
}

// CurrentStep returns the chain step permitted to act, or nil when the
// claim is terminal or the chain is exhausted.
func (c *Claim) CurrentStep() *ChainStep {
	if IsTerminalStatus(c.Status) {
		return nil
	}
	if c.ApprovalLevel < 0 || c.ApprovalLevel >= len(c.Chain) {
		return nil
	}
	return &c.Chain[c.ApprovalLevel]
}

// IsActionable reports whether any approval action may still be taken.
func (c *Claim) IsActionable() bool {
	return c.Status == StatusPending || c.Status == StatusInReview
}
