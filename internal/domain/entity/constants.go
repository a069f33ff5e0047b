package entity

// Claim statuses
const (
	StatusPending  = "pending"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Approval decisions recorded in the audit ledger
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// User roles
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleFinance  = "finance"
	RoleDirector = "director"
	RoleAdmin    = "admin"
)

// ValidRoles is the set of roles a user or approval step may carry.
var ValidRoles = map[string]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleFinance:  true,
	RoleDirector: true,
	RoleAdmin:    true,
}

// Categories accepted on claim submission.
var ValidCategories = map[string]bool{
	"Travel":          true,
	"Meals":           true,
	"Office Supplies": true,
	"Equipment":       true,
	"Software":        true,
	"Marketing":       true,
	"Training":        true,
	"Other":           true,
}

// IsTerminalStatus returns true when no further approval action may mutate the claim.
func IsTerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}
