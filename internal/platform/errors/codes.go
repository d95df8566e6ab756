// Package errors provides structured domain errors keyed by machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidInstitution Code = "INVALID_INSTITUTION"
	CodeInvalidPhone       Code = "INVALID_PHONE"

	// Token ledger errors
	CodeDuplicateCode    Code = "DUPLICATE_CODE"
	CodeRedemptionFailed Code = "REDEMPTION_FAILED"
	CodeTokenNotRedeemed Code = "TOKEN_NOT_REDEEMED"
	CodeAlreadyIssued    Code = "ALREADY_ISSUED"

	// Intake errors
	CodeIntakeInvalidTransition Code = "INTAKE_INVALID_TRANSITION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Access errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input
	case CodeInvalidArgument,
		CodeInvalidInstitution,
		CodeInvalidPhone:
		return http.StatusBadRequest

	// Conflict - state doesn't allow operation
	case CodeDuplicateCode,
		CodeRedemptionFailed,
		CodeTokenNotRedeemed,
		CodeAlreadyIssued,
		CodeIntakeInvalidTransition:
		return http.StatusConflict

	case CodeNotFound:
		return http.StatusNotFound

	case CodeUnauthenticated:
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}
