package entity

import "time"

// User is an identity consumed read-only by the engine: role, department
// and approval limit drive approver binding.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Department    string    `json:"department"`
	CompanyID     int64     `json:"company_id"`
	ManagerID     *int64    `json:"manager_id,omitempty"`
	ApprovalLimit float64   `json:"approval_limit"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanApprove reports whether the user may approve the given base-currency
// amount. A zero limit means unlimited.
func (u *User) CanApprove(amount float64) bool {
	if !u.IsActive {
		return false
	}
	return u.ApprovalLimit == 0 || u.ApprovalLimit >= amount
}

// IsAdmin reports whether the user carries the admin override capability.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
