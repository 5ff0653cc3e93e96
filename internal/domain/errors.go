package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Match errors
var (
	// ErrMatchNotFound is returned when no match exists for the given id.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchNotOpen is returned when a stake is placed on a match that is
	// not scheduled, or whose kickoff time has already passed.
	ErrMatchNotOpen = errors.New("match is not open for predictions")

	// ErrAlreadySettled is returned when settling or refunding a match whose
	// is_settled flag is already set. Pollers treat it as a no-op success.
	ErrAlreadySettled = errors.New("match is already settled")

	// ErrMatchStillOpen is returned when settlement is requested for a match
	// whose prediction window has not closed yet. A final score cannot exist
	// before kickoff, so this always signals an operator mistake.
	ErrMatchStillOpen = errors.New("match is still open for predictions")

	// ErrInvalidMatch is returned for bad match creation input.
	ErrInvalidMatch = errors.New("invalid match")
)

// Prediction errors
var (
	// ErrInvalidOutcome is returned when the outcome is not home/draw/away.
	ErrInvalidOutcome = errors.New("invalid outcome: must be home, draw or away")

	// ErrInvalidStake is returned when the stake is not a positive integer.
	ErrInvalidStake = errors.New("stake must be a positive number of coins")

	// ErrAlreadyPredicted is returned when the user already holds a
	// prediction on this match (one stake per user per match).
	ErrAlreadyPredicted = errors.New("you already have a prediction on this match")

	// ErrPredictionNotFound is returned when no prediction matches the id.
	ErrPredictionNotFound = errors.New("prediction not found")
)

// User errors
var (
	// ErrUserNotFound is returned when no user row exists for the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned when a suspended user attempts to stake.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInsufficientBalance is the sentinel matched by errors.Is for the
	// typed InsufficientBalanceError below.
	ErrInsufficientBalance = errors.New("insufficient coin balance")
)

// Leaderboard errors
var (
	// ErrInvalidSortKey is returned for an unrecognised leaderboard sort key.
	ErrInvalidSortKey = errors.New("invalid sort key: must be profit, win_rate or streak")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the required access.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// InsufficientBalanceError
// ──────────────────────────────────────────────────────────────────────────────

// InsufficientBalanceError carries the exact shortfall so placement failures
// can be shown to the user with the missing amount.
// errors.Is(err, ErrInsufficientBalance) matches it.
type InsufficientBalanceError struct {
	Balance  int64 // coins the user has
	Required int64 // coins the stake needs
}

// Error implements the error interface.
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient coin balance: have %d, need %d (short %d)",
		e.Balance, e.Required, e.Shortfall())
}

// Shortfall returns how many coins are missing.
func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.Required - e.Balance
}

// Is lets errors.Is match the ErrInsufficientBalance sentinel.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinels so IsNotFound
// stays in sync automatically.
var notFoundErrors = []error{
	ErrMatchNotFound,
	ErrPredictionNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this when translating domain errors to HTTP
// 404 responses instead of comparing error values directly.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict
// (double stake, double settlement, closed match).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrAlreadyPredicted,
		ErrAlreadySettled,
		ErrMatchNotOpen,
		ErrMatchStillOpen,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for caller-input errors that carry no side
// effects and map to HTTP 400 responses.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidOutcome,
		ErrInvalidStake,
		ErrInvalidSortKey,
		ErrInvalidMatch,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
