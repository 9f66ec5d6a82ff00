// Review HTTP handlers.
//
// This file exposes the author-facing review endpoints. Each is mounted under
// both kind prefixes (/reviews for professors, /college-reviews for colleges):
//   - POST   {prefix}              (submit)
//   - GET    {prefix}/mine         (caller's reviews, any status)
//   - GET    {prefix}/{id}         (approved, or the caller's own)
//   - PUT    {prefix}/{id}         (partial edit)
//   - DELETE {prefix}/{id}
//   - POST   {prefix}/{id}/flag    (report)
//   - POST   {prefix}/{id}/vote    (helpful / not helpful)
//
// Idempotency:
// A submission carrying an Idempotency-Key that the same user already used
// returns the stored review with `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/http/middleware"
	"github.com/tbourn/go-review-backend/internal/services"
)

//
// DTOs
//

// CreateReviewRequest is the JSON payload for submitting a review.
type CreateReviewRequest struct {
	// SubjectID is the professor or college being reviewed.
	SubjectID        string `json:"subject_id"        binding:"required,uuid" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	OverallRating    int    `json:"overall_rating"    binding:"required,min=1,max=5" example:"4"`
	TeachingRating   int    `json:"teaching_rating"   binding:"required,min=1,max=5" example:"5"`
	DifficultyRating int    `json:"difficulty_rating" binding:"required,min=1,max=5" example:"3"`
	SupportRating    int    `json:"support_rating"    binding:"required,min=1,max=5" example:"4"`
	ReviewText       string `json:"review_text"       binding:"max=2000" example:"Clear lectures and fair exams."`
	CourseCode       string `json:"course_code"       binding:"max=32" example:"CS101"`
	Semester         string `json:"semester"          binding:"omitempty,semester" example:"Fall 2024"`
	// DisplayName is an optional pseudonym; ignored for college reviews.
	DisplayName string `json:"display_name" binding:"max=64" example:"night owl"`
}

// UpdateReviewRequest is the JSON payload for a partial edit. Omitted fields
// are left unchanged.
type UpdateReviewRequest struct {
	OverallRating    *int    `json:"overall_rating"    binding:"omitempty,min=1,max=5"`
	TeachingRating   *int    `json:"teaching_rating"   binding:"omitempty,min=1,max=5"`
	DifficultyRating *int    `json:"difficulty_rating" binding:"omitempty,min=1,max=5"`
	SupportRating    *int    `json:"support_rating"    binding:"omitempty,min=1,max=5"`
	ReviewText       *string `json:"review_text"       binding:"omitempty,max=2000"`
	CourseCode       *string `json:"course_code"       binding:"omitempty,max=32"`
	Semester         *string `json:"semester"          binding:"omitempty,semester"`
	DisplayName      *string `json:"display_name"      binding:"omitempty,max=64"`
}

// FlagReviewRequest is the JSON payload for reporting a review.
type FlagReviewRequest struct {
	FlagType string `json:"flag_type" binding:"required,oneof=inappropriate spam low_quality harassment fake_review off_topic other" example:"spam"`
	Reason   string `json:"reason"    binding:"max=1000" example:"advertises an essay service"`
}

// VoteRequest is the JSON payload for a helpfulness vote.
type VoteRequest struct {
	Helpful *bool `json:"helpful" binding:"required" example:"true"`
}

// ReviewListResponse wraps a list of reviews.
type ReviewListResponse struct {
	Reviews []domain.Review `json:"reviews"`
}

// reviewID validates the :id path parameter.
func reviewID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "review id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateReview godoc
// @ID          createReview
// @Summary     Submit a review
// @Description Submits an anonymous review. The review starts in `pending` and is analyzed asynchronously.
// @Description Supports idempotency via the Idempotency-Key header (same key → same review).
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateReviewRequest  true  "Review payload"
//
// @Success     201  {object}  domain.Review
// @Header      201  {string}  Idempotency-Replayed  "true when the stored review is returned"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or unknown subject"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409  {object}  handlers.ErrorResponse  "Already reviewed"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily limit reached"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews [post]
// @Router      /college-reviews [post]
func (h *Handlers) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	r, replayed, err := h.reviews.Create(c.Request.Context(), kindOf(c), currentUser(c), services.ReviewInput{
		SubjectID:        req.SubjectID,
		OverallRating:    req.OverallRating,
		TeachingRating:   req.TeachingRating,
		DifficultyRating: req.DifficultyRating,
		SupportRating:    req.SupportRating,
		ReviewText:       req.ReviewText,
		CourseCode:       req.CourseCode,
		Semester:         req.Semester,
		DisplayName:      req.DisplayName,
	}, services.SubmitMeta{
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		IdempotencyKey: key,
	})
	if errors.Is(err, services.ErrSubjectNotFound) {
		// The subject is part of the request body, not the path.
		fail(c, http.StatusBadRequest, ErrCodeSubjectNotFound, err.Error())
		return
	}
	if err != nil {
		failService(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusCreated, r)
}

// MyReviews godoc
// @ID          myReviews
// @Summary     List my reviews
// @Description Returns every review the caller wrote, in any moderation status.
// @Tags        Reviews
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ReviewListResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews/mine [get]
// @Router      /college-reviews/mine [get]
func (h *Handlers) MyReviews(c *gin.Context) {
	items, err := h.reviews.Mine(c.Request.Context(), currentUser(c), kindOf(c))
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Review{}
	}
	ok(c, http.StatusOK, ReviewListResponse{Reviews: items})
}

// GetReview godoc
// @ID          getReview
// @Summary     Get a review
// @Description Returns an approved review, or one of the caller's own in any status.
// @Tags        Reviews
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Review ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Router      /reviews/{id} [get]
// @Router      /college-reviews/{id} [get]
func (h *Handlers) GetReview(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	r, err := h.reviews.Get(c.Request.Context(), kindOf(c), id, currentUser(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateReview godoc
// @ID          updateReview
// @Summary     Edit a review
// @Description Applies a partial edit to the caller's review. Changing the text sends it back to moderation.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateReviewRequest  true  "Fields to change"
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Review can no longer be edited"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /reviews/{id} [put]
// @Router      /college-reviews/{id} [put]
func (h *Handlers) UpdateReview(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	var req UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reviews.Update(c.Request.Context(), kindOf(c), id, currentUser(c), services.ReviewPatch{
		OverallRating:    req.OverallRating,
		TeachingRating:   req.TeachingRating,
		DifficultyRating: req.DifficultyRating,
		SupportRating:    req.SupportRating,
		ReviewText:       req.ReviewText,
		CourseCode:       req.CourseCode,
		Semester:         req.Semester,
		DisplayName:      req.DisplayName,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteReview godoc
// @ID          deleteReview
// @Summary     Delete a review
// @Tags        Reviews
// @Security    BearerAuth
// @Param       id   path  string  true  "Review ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Router      /reviews/{id} [delete]
// @Router      /college-reviews/{id} [delete]
func (h *Handlers) DeleteReview(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), kindOf(c), id, currentUser(c)); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// FlagReview godoc
// @ID          flagReview
// @Summary     Report a review
// @Description Flags a review for moderator attention. A user can flag a review once.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.FlagReviewRequest  true  "Report"
// @Success     201  {object}  domain.Flag
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already flagged"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /reviews/{id}/flag [post]
// @Router      /college-reviews/{id}/flag [post]
func (h *Handlers) FlagReview(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	var req FlagReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.flags.FlagReview(c.Request.Context(), kindOf(c), id, currentUser(c), domain.FlagType(req.FlagType), req.Reason)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, f)
}

// VoteReview godoc
// @ID          voteReview
// @Summary     Vote on a review
// @Description Records whether an approved review was helpful. One vote per user.
// @Tags        Reviews
// @Accept      json
// @Security    BearerAuth
// @Param       id    path  string  true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.VoteRequest  true  "Vote"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already voted"
// @Router      /reviews/{id}/vote [post]
// @Router      /college-reviews/{id}/vote [post]
func (h *Handlers) VoteReview(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	var req VoteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.reviews.Vote(c.Request.Context(), kindOf(c), id, currentUser(c), *req.Helpful); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
