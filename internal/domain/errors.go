package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInvalidRate              = errors.New("exchange rate must be greater than zero")
	ErrIllegalTransition        = errors.New("illegal state transition")
	ErrMissingPendingWithdrawal = errors.New("no pending withdrawal in session")
	ErrEmptyBankList            = errors.New("saved bank list is empty")
	ErrTransactionFailed        = errors.New("transaction failed")
	ErrPollTimeout              = errors.New("transaction status polling timed out")
)

// RejectedError is a business rejection reported by the backend. Reason is
// user-facing and is relayed to the user as-is.
type RejectedError struct {
	Op     string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Reason)
}
