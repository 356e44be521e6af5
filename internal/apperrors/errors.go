// Package apperrors defines the error kinds shared across the order and
// payment lifecycle so callers can branch on them instead of matching
// message strings.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound means the payment provider has no record for
	// the given identifier. Likely an integration bug; not retryable.
	ErrProviderNotFound = errors.New("payment not found at provider")

	// ErrProviderUnavailable means the provider did not answer (network
	// failure or timeout). Transient; safe for the caller to retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// StateConflictError is returned when a lifecycle method is invoked while
// the entity is not in the required source state.
type StateConflictError struct {
	Entity string // "order" or "payment"
	Status string // current status
	Action string // attempted transition
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s in status %s cannot %s", e.Entity, e.Status, e.Action)
}

// IsStateConflict reports whether err is (or wraps) a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}

// CancelCode discriminates the provider's documented business-rule
// violations for a cancellation request.
type CancelCode string

const (
	CancelBadRequest                  CancelCode = "BAD_REQUEST"
	CancelUnauthorized                CancelCode = "UNAUTHORIZED"
	CancelForbidden                   CancelCode = "FORBIDDEN"
	CancelNotFound                    CancelCode = "NOT_FOUND"
	CancelNotPaid                     CancelCode = "NOT_PAID"
	CancelAlreadyCancelled            CancelCode = "ALREADY_CANCELLED"
	CancelAmountConsistencyBroken     CancelCode = "CANCELLABLE_AMOUNT_CONSISTENCY_BROKEN"
	CancelAmountExceedsCancellable    CancelCode = "CANCEL_AMOUNT_EXCEEDS_CANCELLABLE"
	CancelSumOfPartsExceedsAmount     CancelCode = "SUM_OF_PARTS_EXCEEDS_CANCEL_AMOUNT"
	CancelTaxFreeAmountExceeds        CancelCode = "CANCEL_TAX_FREE_AMOUNT_EXCEEDS_CANCELLABLE"
	CancelTaxAmountExceeds            CancelCode = "CANCEL_TAX_AMOUNT_EXCEEDS_CANCELLABLE"
	CancelBelowPromotionMinimumAmount CancelCode = "REMAINED_AMOUNT_BELOW_PROMOTION_MINIMUM"
	CancelUnknown                     CancelCode = "UNKNOWN"
)

// CancelError is a provider-returned business error on a cancel request,
// decoded once at the provider-client boundary.
type CancelError struct {
	Code    CancelCode
	Message string
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("payment cancel rejected (%s): %s", e.Code, e.Message)
}

// AsCancelError extracts a CancelError from err, if any.
func AsCancelError(err error) (*CancelError, bool) {
	var ce *CancelError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
