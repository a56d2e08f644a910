package model

import "errors"

// Domain errors. Each is an expected outcome reported to the caller, never retried.
var (
	// Trade errors
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientQuantity = errors.New("insufficient quantity held")
	ErrAccountBusy          = errors.New("account is busy with another trade")
	ErrConcurrentUpdate     = errors.New("account was modified concurrently")

	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrDuplicatePlayer = errors.New("player already exists")
	ErrInvalidPlayer   = errors.New("invalid player")

	// Stock errors
	ErrStockNotFound      = errors.New("stock not found")
	ErrDuplicateStockName = errors.New("stock name already exists")
	ErrInvalidStock       = errors.New("invalid stock")
	ErrStockInUse         = errors.New("stock is still held by players")

	// Holding errors
	ErrHoldingNotFound = errors.New("holding not found")

	// Authentication errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTokenMissing         = errors.New("session token missing")
	ErrTokenInvalid         = errors.New("session token invalid")
	ErrTokenExpired         = errors.New("session token expired")
	ErrForbidden            = errors.New("not permitted for this player")

	// Paging errors
	ErrInvalidPage = errors.New("offset must be >= 0 and count must be >= 1")
)

// InvariantViolation reports ledger corruption or a caller bug. It is not a
// user error: the ledger panics with it and the operation is aborted.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "ledger invariant violated: " + e.Reason
}
