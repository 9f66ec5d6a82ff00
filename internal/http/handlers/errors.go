// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service sentinel errors into status + code pairs. These codes provide clients
// with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (e.g., duplicate_review, quota_exceeded) are reserved
//     for business rules that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "duplicate_review",
//	  "message": "you have already reviewed this subject"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-review-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeDuplicateReview   = "duplicate_review"
	ErrCodeDuplicateFlag     = "duplicate_flag"
	ErrCodeDuplicateVote     = "duplicate_vote"
	ErrCodeQuotaExceeded     = "quota_exceeded"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeAlreadyResolved   = "flag_already_resolved"
	ErrCodeSubjectNotFound   = "subject_not_found"
	ErrCodeReviewNotFound    = "review_not_found"
	ErrCodeFlagNotFound      = "flag_not_found"
)

// errorMapping pairs a service sentinel with its HTTP translation.
type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors is checked in order with errors.Is.
var serviceErrors = []errorMapping{
	{services.ErrInvalidKind, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidRating, http.StatusUnprocessableEntity, ErrCodeValidation},
	{services.ErrTextTooLong, http.StatusUnprocessableEntity, ErrCodeValidation},
	{services.ErrInvalidFlagType, http.StatusUnprocessableEntity, ErrCodeValidation},
	{services.ErrInvalidAction, http.StatusUnprocessableEntity, ErrCodeValidation},
	{services.ErrReasonRequired, http.StatusUnprocessableEntity, ErrCodeValidation},
	{services.ErrInvalidStatus, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNameRequired, http.StatusUnprocessableEntity, ErrCodeValidation},

	{services.ErrSubjectNotFound, http.StatusNotFound, ErrCodeSubjectNotFound},
	{services.ErrReviewNotFound, http.StatusNotFound, ErrCodeReviewNotFound},
	{services.ErrFlagNotFound, http.StatusNotFound, ErrCodeFlagNotFound},

	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrDuplicateReview, http.StatusConflict, ErrCodeDuplicateReview},
	{services.ErrDuplicateFlag, http.StatusConflict, ErrCodeDuplicateFlag},
	{services.ErrDuplicateVote, http.StatusConflict, ErrCodeDuplicateVote},
	{services.ErrFlagAlreadyResolved, http.StatusConflict, ErrCodeAlreadyResolved},
	{services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{services.ErrQuotaExceeded, http.StatusTooManyRequests, ErrCodeQuotaExceeded},
}

// statusFor translates a service error into status, code and a client-safe
// message. Unknown errors are internal.
func statusFor(err error) (int, string, string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error()
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal error"
}

// failService writes the envelope for a service error. For internal errors
// the cause is attached to the context so it is logged but never sent.
func failService(c *gin.Context, err error) {
	status, code, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, code, msg)
}
