package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccountID means a referenced account is unknown.
	ErrInvalidAccountID = errors.New("invalid account id")
	// ErrDuplicateAccountID means source and sink are the same account.
	ErrDuplicateAccountID = errors.New("duplicate account id")
	// ErrInvalidStartEndDateCombination means the end date precedes the start date.
	ErrInvalidStartEndDateCombination = errors.New("end date before start date")
)

// TransactionError is returned by the transaction constructors. Err is one of
// the sentinel errors above.
type TransactionError struct {
	Err error

	// ID is set for ErrInvalidAccountID and ErrDuplicateAccountID.
	ID AccountID

	// Start and End are set for ErrInvalidStartEndDateCombination.
	Start Date
	End   Date
}

func (e *TransactionError) Error() string {
	switch e.Err {
	case ErrInvalidStartEndDateCombination:
		return fmt.Sprintf("transaction: %v: start %s, end %s", e.Err, e.Start, e.End)
	default:
		return fmt.Sprintf("transaction: %v: %s", e.Err, e.ID)
	}
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
