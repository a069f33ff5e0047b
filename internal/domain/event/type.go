package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimSubmitted    Type = "claim.submitted"
	TypeClaimApproved     Type = "claim.approved"
	TypeClaimRejected     Type = "claim.rejected"
	TypeClaimAutoApproved Type = "claim.auto_approved"
	TypeApproverAssigned  Type = "claim.approver_assigned"
	TypeClaimWithdrawn    Type = "claim.withdrawn"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimSubmitted,
		TypeClaimApproved,
		TypeClaimRejected,
		TypeClaimAutoApproved,
		TypeApproverAssigned,
		TypeClaimWithdrawn:
		return true
	default:
		return false
	}
}
