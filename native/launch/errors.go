package launch

import "errors"

var (
	ErrNilState          = errors.New("launch: state not configured")
	ErrParamsNotSet      = errors.New("launch: params not configured")
	ErrPoolNotConfigured = errors.New("launch: pool backend not configured")
	ErrUnauthorized      = errors.New("launch: unauthorized")

	ErrProposalNotFound = errors.New("launch: proposal not found")
	ErrProposalExists   = errors.New("launch: proposal already exists")
	ErrBackerNotFound   = errors.New("launch: backer record not found")
	ErrMetadataTooLong  = errors.New("launch: token metadata too long")

	// Guard violations are caller-recoverable and always carry a distinct kind.
	ErrTargetNotMet         = errors.New("launch: minimum backers not reached")
	ErrBackingGoalReached   = errors.New("launch: maximum backers reached")
	ErrAlreadyBacked        = errors.New("launch: proposal already backed")
	ErrBackingEnded         = errors.New("launch: backing period has ended")
	ErrCannotBackOwn        = errors.New("launch: maker cannot back own proposal")
	ErrProposalRejected     = errors.New("launch: proposal rejected")
	ErrProposalNotRejected  = errors.New("launch: proposal not rejected")
	ErrAlreadyRejected      = errors.New("launch: proposal already rejected")
	ErrPoolAlreadyLaunched  = errors.New("launch: pool already launched")
	ErrPoolNotLaunched      = errors.New("launch: pool not launched")
	ErrProposalUnresolved   = errors.New("launch: proposal not resolved")
	ErrMilestoneActive      = errors.New("launch: milestone already active")
	ErrNoMilestoneActive    = errors.New("launch: no active milestone")
	ErrNotAllBackersSettled = errors.New("launch: not all backers settled")
	ErrAmountAlreadyUpdated = errors.New("launch: amount already updated")
	ErrMaxBackedProposals   = errors.New("launch: max backed proposals reached")
	ErrNothingToClaim       = errors.New("launch: nothing to claim")
	ErrPoolStillExists      = errors.New("launch: pool still exists")
	ErrAlreadyUnlocked      = errors.New("launch: already emergency unlocked")
	ErrUnlockTooSoon        = errors.New("launch: too soon for emergency unlock")
	ErrInsufficientFunds    = errors.New("launch: insufficient balance")

	// Arithmetic faults abort the operation; they never saturate silently.
	ErrNumericalOverflow = errors.New("launch: numerical overflow")
	ErrRefundMismatch    = errors.New("launch: refund reconciliation failed")
)
