package requests

import (
	"errors"
	"fmt"

	"github.com/warp/returns-engine/eligibility"
)

var (
	// ErrNotFound is returned when a request ID does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrInvalidDecision is returned for a decision other than approved/rejected.
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrDecisionAlreadyRecorded is returned when a case is already closed.
	ErrDecisionAlreadyRecorded = errors.New("decision already recorded")
)

// DecisionConflictError reports an attempt to decide a closed case.
type DecisionConflictError struct {
	RequestID string
	Current   FinalDecision
}

func (e *DecisionConflictError) Error() string {
	return fmt.Sprintf("request %s is already %s", e.RequestID, e.Current)
}

func (e *DecisionConflictError) Unwrap() error { return ErrDecisionAlreadyRecorded }

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return eligibility.IsInputError(err) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrDecisionAlreadyRecorded)
}

// IsNotFound returns true if the error indicates a missing request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
