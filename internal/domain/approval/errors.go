package approval

import "errors"

var (
	// ErrNoCompanyPolicy is returned when a claim cannot be routed because
	// the company has no approval configuration at all
	ErrNoCompanyPolicy = errors.New("no company policy configured")

	// ErrNotActionable is returned when the claim is already terminal
	ErrNotActionable = errors.New("claim is not actionable")

	// ErrNotAuthorized is returned when the actor is not the current
	// approver and lacks the admin override capability
	ErrNotAuthorized = errors.New("not authorized to act on this claim")

	// ErrInvalidDecision is returned for decisions outside approved/rejected
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)
