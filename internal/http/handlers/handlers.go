// Package handlers implements the HTTP endpoints of the review platform.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results (and service sentinel errors) into HTTP
// responses. Review, flag and moderation endpoints exist once and serve both
// subject kinds; the route group tells them which kind via WithKind.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/http/middleware"
	"github.com/tbourn/go-review-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ReviewService defines the author-facing review operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReviewService interface {
	// Create submits a review; the bool reports an idempotent replay.
	Create(ctx context.Context, kind domain.SubjectKind, authorID string, in services.ReviewInput, meta services.SubmitMeta) (*domain.Review, bool, error)
	// Update applies a partial edit to a review owned by callerID.
	Update(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string, patch services.ReviewPatch) (*domain.Review, error)
	// Delete removes a review owned by callerID.
	Delete(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string) error
	// Mine lists the caller's reviews of kind.
	Mine(ctx context.Context, callerID string, kind domain.SubjectKind) ([]domain.Review, error)
	// ListForSubject returns a page of approved reviews of a subject.
	ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID string, page, pageSize int) ([]domain.Review, int64, error)
	// Get returns one review as visible to callerID.
	Get(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string) (*domain.Review, error)
	// Vote records a helpful / not-helpful vote.
	Vote(ctx context.Context, kind domain.SubjectKind, reviewID, voterID string, helpful bool) error
}

// FlagService defines user reports on reviews.
type FlagService interface {
	FlagReview(ctx context.Context, kind domain.SubjectKind, reviewID, reporterID string, flagType domain.FlagType, description string) (*domain.Flag, error)
}

// SubjectService defines professor and college lookups and creation.
type SubjectService interface {
	CreateProfessor(ctx context.Context, in services.ProfessorInput) (*domain.Professor, error)
	CreateCollege(ctx context.Context, in services.CollegeInput) (*domain.College, error)
	GetProfessor(ctx context.Context, id string) (*domain.Professor, error)
	GetCollege(ctx context.Context, id string) (*domain.College, error)
	ListProfessors(ctx context.Context, search string, page, pageSize int) ([]domain.Professor, int64, error)
	ListColleges(ctx context.Context, search string, page, pageSize int) ([]domain.College, int64, error)
}

// ModerationService defines the moderator workflow.
type ModerationService interface {
	ListFlagged(ctx context.Context, kind domain.SubjectKind, status domain.FlagStatus, limit, offset int) ([]services.FlaggedItem, error)
	ResolveFlag(ctx context.Context, kind domain.SubjectKind, flagID, moderatorID, action, notes string) (*domain.Flag, error)
	ListReviewsByStatus(ctx context.Context, kind domain.SubjectKind, status domain.ReviewStatus, limit, offset int) ([]services.ReviewWithFlags, error)
	ReviewAction(ctx context.Context, kind domain.SubjectKind, reviewID, moderatorID, action, reason string) (*domain.Review, error)
	Stats(ctx context.Context, kind domain.SubjectKind) (services.ModerationStats, error)
	Logs(ctx context.Context, targetID string, limit, offset int) ([]domain.ModerationLog, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	reviews    ReviewService
	flags      FlagService
	subjects   SubjectService
	moderation ModerationService
}

// New constructs a Handlers bound to the given services.
func New(reviews ReviewService, flags FlagService, subjects SubjectService, moderation ModerationService) *Handlers {
	return &Handlers{reviews: reviews, flags: flags, subjects: subjects, moderation: moderation}
}

const kindKey = "subject.kind"

// WithKind tags every request of a route group with the subject kind its
// handlers operate on.
func WithKind(kind domain.SubjectKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(kindKey, kind)
		c.Next()
	}
}

// kindOf returns the kind set by WithKind, defaulting to professor.
func kindOf(c *gin.Context) domain.SubjectKind {
	if k, ok := c.Value(kindKey).(domain.SubjectKind); ok && k.Valid() {
		return k
	}
	return domain.KindProfessor
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// currentUser returns the authenticated user id; RequireUser guarantees it
// is set on the routes that call this.
func currentUser(c *gin.Context) string { return middleware.UserID(c) }
