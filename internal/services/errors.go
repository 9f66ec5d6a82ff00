// Package services holds the business logic of the review platform: review
// submission and ownership, automatic content flagging, user flags, the
// moderation workflow and rating aggregation.
//
// This file centralizes the sentinel errors returned by service methods.
// Handlers translate them into HTTP status codes; callers match them with
// errors.Is, so they may arrive wrapped.
package services

import "errors"

// Validation errors.
var (
	// ErrInvalidKind is returned for a subject kind other than professor or college.
	ErrInvalidKind = errors.New("invalid subject kind")

	// ErrInvalidRating is returned when any rating is outside 1..5.
	ErrInvalidRating = errors.New("ratings must be between 1 and 5")

	// ErrTextTooLong is returned when review text exceeds the rune limit.
	ErrTextTooLong = errors.New("review text too long")

	// ErrSubjectNotFound is returned when a review targets a subject that
	// does not exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrInvalidFlagType is returned for an unknown flag type.
	ErrInvalidFlagType = errors.New("invalid flag type")

	// ErrInvalidAction is returned for an unknown moderation action.
	ErrInvalidAction = errors.New("invalid action")

	// ErrReasonRequired is returned when a moderation action has no reason.
	ErrReasonRequired = errors.New("reason is required")

	// ErrInvalidStatus is returned for an unknown review or flag status filter.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNameRequired is returned when a subject is created without a name.
	ErrNameRequired = errors.New("name is required")
)

// Review errors.
var (
	// ErrReviewNotFound indicates the review does not exist, was deleted, or
	// is not visible to the caller.
	ErrReviewNotFound = errors.New("review not found")

	// ErrDuplicateReview is returned when the author already has an active
	// review of the same subject.
	ErrDuplicateReview = errors.New("you have already reviewed this subject")

	// ErrForbidden is returned when the caller does not own the review.
	ErrForbidden = errors.New("not the author of this review")

	// ErrQuotaExceeded is returned when the daily submission limit is reached.
	ErrQuotaExceeded = errors.New("daily review limit reached")

	// ErrDuplicateVote is returned when the voter already voted on the review.
	ErrDuplicateVote = errors.New("already voted on this review")
)

// Flag and moderation errors.
var (
	// ErrDuplicateFlag is returned when the reporter already flagged the review.
	ErrDuplicateFlag = errors.New("you have already flagged this review")

	// ErrFlagNotFound indicates the flag does not exist.
	ErrFlagNotFound = errors.New("flag not found")

	// ErrFlagAlreadyResolved is returned when resolving a flag that is no
	// longer pending.
	ErrFlagAlreadyResolved = errors.New("flag already resolved")

	// ErrInvalidTransition is returned when a moderation action is not
	// allowed from the review's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrAnalysisFailed is returned by the coordinator when the analyzer fails
// and fail-open is disabled. The analysis job is retried.
var ErrAnalysisFailed = errors.New("content analysis failed")
