package common

import "errors"

// Rejection sentinels shared by the settlement ledgers. Every operation either
// completes in full or fails with one of these (possibly wrapped with detail);
// callers branch with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrTokenNotAccepted  = errors.New("pay token not accepted")
	ErrWindowViolation   = errors.New("outside operation window")
	ErrBidTooLow         = errors.New("bid too low")
	ErrAlreadyResolved   = errors.New("already resolved")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds or allowance")
)
