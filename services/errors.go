package services

import (
	"errors"
	"fmt"
)

var (
	// ErrLedgerNotFound means the user has never earned points. It is distinct from a zero balance.
	ErrLedgerNotFound = errors.New("karma ledger not found")
	// ErrAlreadyClaimed rejects a second daily claim on the same calendar day.
	ErrAlreadyClaimed = errors.New("daily points already claimed today")
	// ErrInsufficientPoints rejects an unlock the balance cannot cover.
	ErrInsufficientPoints = errors.New("insufficient karma points")
	ErrInvalidAmount      = errors.New("points must be a positive integer")
	ErrEpisodeNotFound    = errors.New("episode not found")
	ErrAdNotFound         = errors.New("advertisement not found")
)

// ClaimError carries the unchanged streak day of a rejected daily claim.
type ClaimError struct {
	StreakDay int
	Points    int64
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("%s (streak day %d)", ErrAlreadyClaimed, e.StreakDay)
}

func (e *ClaimError) Unwrap() error { return ErrAlreadyClaimed }

// InsufficientPointsError reports the balance that failed the unlock check.
type InsufficientPointsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("%s: have %d, need %d", ErrInsufficientPoints, e.Balance, e.Required)
}

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }
