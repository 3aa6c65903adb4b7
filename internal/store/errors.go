package store

import (
	"errors"
	"fmt"
)

// Error kinds shared by the store and the workflows built on it.
var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyProcessed       = errors.New("already processed")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrBelowMinimum           = errors.New("amount below plan minimum")
	ErrPlanInactive           = errors.New("staking plan is not active")
	ErrPlanInUse              = errors.New("staking plan has active stakes")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrDependencyUnavailable  = errors.New("dependency unavailable")
	ErrPartialFailure         = errors.New("partial failure")
	ErrReconciliationRequired = errors.New("reconciliation required")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// PartialFailureError reports a two-step mutation whose second step failed.
// RollbackErr is set when the compensating step failed as well, leaving the
// ledger in a state that needs manual reconciliation.
type PartialFailureError struct {
	Op          string
	Cause       error
	RollbackErr error
}

func (e *PartialFailureError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("%s failed: %v; rollback failed: %v", e.Op, e.Cause, e.RollbackErr)
	}
	return fmt.Sprintf("%s failed and was rolled back: %v", e.Op, e.Cause)
}

func (e *PartialFailureError) Is(target error) bool {
	if target == ErrPartialFailure {
		return true
	}
	return target == ErrReconciliationRequired && e.RollbackErr != nil
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}

// RequiresReconciliation reports whether the rollback step failed
func (e *PartialFailureError) RequiresReconciliation() bool {
	return e.RollbackErr != nil
}
