package model

import (
	"errors"
	"fmt"
	"time"
)

// Ledger errors.
var (
	ErrInvalidAmount         = errors.New("amount must be a positive integer")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientBankFunds = errors.New("insufficient bank funds")
	ErrBankOverflow          = errors.New("bank capacity exceeded")
	ErrSelfTarget            = errors.New("source and target accounts must differ")
	ErrLoanNotFound          = errors.New("no outstanding loan for lender")
)

// Gamble and rob preconditions.
var (
	ErrBetTooSmall   = errors.New("bet is below the minimum")
	ErrRobberTooPoor = errors.New("robber does not have enough money to rob")
	ErrVictimTooPoor = errors.New("victim does not have enough money to be robbed")
)

// Inventory errors.
var (
	ErrUnknownItem       = errors.New("unknown item")
	ErrInsufficientItems = errors.New("not enough active items")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemExpired       = errors.New("item has expired")
	ErrItemNotGiftable   = errors.New("item cannot be gifted")
	ErrItemNotUsable     = errors.New("item cannot be used")
)

// Account, request and infrastructure errors.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAlreadyClaimed   = errors.New("daily reward already claimed")
	ErrUnauthorized     = errors.New("actor is not allowed to perform this action")
	ErrRequestNotFound  = errors.New("pending request not found")
	ErrDuplicateRequest = errors.New("pending request already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// AlreadyClaimedError carries how long until the daily reward resets.
type AlreadyClaimedError struct {
	TimeUntilReset time.Duration
	NextClaim      time.Time
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("%s: next claim in %s", ErrAlreadyClaimed.Error(), e.TimeUntilReset.Round(time.Second))
}

// Is lets errors.Is(err, ErrAlreadyClaimed) match.
func (e *AlreadyClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

// Unavailable wraps an infrastructure failure as ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// Retryable reports whether the caller may retry the failed operation.
// Only transient store failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
