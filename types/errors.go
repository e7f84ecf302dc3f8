package types

import "errors"

// Error taxonomy for the ledger core. Every failure is local, synchronous
// and fail-fast: an operation either fully applies or fully reverts.
var (
	// Authorization
	ErrNotValidator = errors.New("caller is not a validator")
	ErrNotOwner     = errors.New("caller is not the owner")

	// Consensus / timelock
	ErrUnknownAction      = errors.New("unknown action")
	ErrActionExpired      = errors.New("action has expired")
	ErrAlreadyConfirmed   = errors.New("validator already confirmed this action")
	ErrTimelockNotElapsed = errors.New("timelock has not elapsed")

	// Invariant violations
	ErrFeeTooHigh         = errors.New("combined fee rate exceeds maximum")
	ErrDuplicateValidator = errors.New("validator already registered")
	ErrUnknownValidator   = errors.New("validator not registered")
	ErrBelowMinimum       = errors.New("validator count would drop below required confirmations")
	ErrNotSlashable       = errors.New("validator has not exceeded the missed-confirmation threshold")
	ErrZeroAddress        = errors.New("zero address not allowed")
	ErrZeroAmount         = errors.New("amount must be greater than zero")
	ErrInvalidThreshold   = errors.New("invalid confirmation threshold")
	ErrDuplicateGrant     = errors.New("beneficiary already has a vesting schedule")
	ErrInvalidSchedule    = errors.New("invalid vesting schedule")
	ErrPaused             = errors.New("ledger is paused")
	ErrNotPaused          = errors.New("ledger is not paused")

	// Funds
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientAllowance   = errors.New("insufficient allowance")
	ErrInsufficientPoolBalance = errors.New("insufficient staking pool balance")
	ErrInsufficientStake       = errors.New("insufficient staked amount")

	// Idempotency guards
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNothingToRelease   = errors.New("nothing vested to release")

	// Reentrancy
	ErrReentrancyDetected = errors.New("reentrant call detected")
)
