// Moderation HTTP handlers.
//
// All routes here require the moderator role. Flag and review endpoints are
// mounted once per subject kind (/flags and /college-flags, and so on).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/services"
	"github.com/tbourn/go-review-backend/internal/utils"
)

const (
	defaultModLimit = 50
	maxModLimit     = 200
)

// ResolveFlagRequest is the JSON payload for closing a flag.
type ResolveFlagRequest struct {
	// Action is "approve" (uphold the report) or "dismiss".
	Action string `json:"action" binding:"required,oneof=approve dismiss" example:"approve"`
	Notes  string `json:"notes"  binding:"max=1000" example:"confirmed advertising"`
}

// ReviewActionRequest is the JSON payload for a moderation decision.
type ReviewActionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve remove reject flag pending" example:"remove"`
	Reason string `json:"reason" binding:"required,min=1,max=1000" example:"harassment of a named student"`
}

// FlagQueueResponse wraps a page of the flag queue.
type FlagQueueResponse struct {
	Items []services.FlaggedItem `json:"items"`
}

// ModerationReviewsResponse wraps reviews with their flags.
type ModerationReviewsResponse struct {
	Reviews []services.ReviewWithFlags `json:"reviews"`
}

// ModerationLogsResponse wraps audit log entries.
type ModerationLogsResponse struct {
	Logs []domain.ModerationLog `json:"logs"`
}

func modWindow(c *gin.Context) (int, int) {
	return utils.OffsetWindow(c.Query("limit"), c.Query("offset"), defaultModLimit, maxModLimit)
}

// ListFlags godoc
// @ID          listFlags
// @Summary     Flag queue
// @Description Returns flags with their review and subject. `status` defaults to pending; `all` disables the filter.
// @Tags        Moderation
// @Produce     json
// @Security    BearerAuth
// @Param       status  query  string  false  "pending | reviewed | dismissed | all"  default(pending)
// @Param       limit   query  int     false  "Max items"  minimum(1) maximum(200) default(50)
// @Param       offset  query  int     false  "Items to skip"  minimum(0) default(0)
// @Success     200  {object}  handlers.FlagQueueResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     403  {object}  handlers.ErrorResponse  "Moderator role required"
// @Router      /moderation/flags [get]
// @Router      /moderation/college-flags [get]
func (h *Handlers) ListFlags(c *gin.Context) {
	status := domain.FlagStatus(c.DefaultQuery("status", string(domain.FlagPending)))
	if status == "all" {
		status = ""
	}
	limit, offset := modWindow(c)
	items, err := h.moderation.ListFlagged(c.Request.Context(), kindOf(c), status, limit, offset)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []services.FlaggedItem{}
	}
	ok(c, http.StatusOK, FlagQueueResponse{Items: items})
}

// ResolveFlag godoc
// @ID          resolveFlag
// @Summary     Resolve a flag
// @Description Approving upholds the report and marks the review flagged; dismissing only closes the flag.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Flag ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ResolveFlagRequest  true  "Decision"
// @Success     200  {object}  domain.Flag
// @Failure     404  {object}  handlers.ErrorResponse  "Flag not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already resolved"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /moderation/flags/{id}/resolve [post]
// @Router      /moderation/college-flags/{id}/resolve [post]
func (h *Handlers) ResolveFlag(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "flag id must be a UUID")
		return
	}
	var req ResolveFlagRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.moderation.ResolveFlag(c.Request.Context(), kindOf(c), id, currentUser(c), req.Action, req.Notes)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// ModerationStats godoc
// @ID          moderationStats
// @Summary     Moderation dashboard counters
// @Tags        Moderation
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.ModerationStats
// @Failure     403  {object}  handlers.ErrorResponse  "Moderator role required"
// @Router      /moderation/stats [get]
// @Router      /moderation/college-stats [get]
func (h *Handlers) ModerationStats(c *gin.Context) {
	st, err := h.moderation.Stats(c.Request.Context(), kindOf(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ListReviewsByStatus godoc
// @ID          listReviewsByStatus
// @Summary     Reviews by moderation status
// @Description Returns reviews in the given status, oldest first, each with its flags.
// @Tags        Moderation
// @Produce     json
// @Security    BearerAuth
// @Param       status  query  string  false  "pending | approved | flagged | removed | rejected"  default(pending)
// @Param       limit   query  int     false  "Max items"  minimum(1) maximum(200) default(50)
// @Param       offset  query  int     false  "Items to skip"  minimum(0) default(0)
// @Success     200  {object}  handlers.ModerationReviewsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Router      /moderation/reviews [get]
// @Router      /moderation/college-reviews [get]
func (h *Handlers) ListReviewsByStatus(c *gin.Context) {
	status := domain.ReviewStatus(c.DefaultQuery("status", string(domain.StatusPending)))
	limit, offset := modWindow(c)
	items, err := h.moderation.ListReviewsByStatus(c.Request.Context(), kindOf(c), status, limit, offset)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []services.ReviewWithFlags{}
	}
	ok(c, http.StatusOK, ModerationReviewsResponse{Reviews: items})
}

// ReviewAction godoc
// @ID          reviewAction
// @Summary     Moderate a review
// @Description Moves a review to a new status. Every decision needs a reason and is written to the audit log.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string  true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ReviewActionRequest  true  "Decision"
// @Success     200  {object}  domain.Review
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /moderation/reviews/{id}/action [post]
// @Router      /moderation/college-reviews/{id}/action [post]
func (h *Handlers) ReviewAction(c *gin.Context) {
	id, valid := reviewID(c)
	if !valid {
		return
	}
	var req ReviewActionRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.moderation.ReviewAction(c.Request.Context(), kindOf(c), id, currentUser(c), req.Action, req.Reason)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ModerationLogs godoc
// @ID          moderationLogs
// @Summary     Audit log
// @Description Returns moderation log entries, newest first, optionally for one target.
// @Tags        Moderation
// @Produce     json
// @Security    BearerAuth
// @Param       target_id  query  string  false  "Review or flag ID"
// @Param       limit      query  int     false  "Max items"  minimum(1) maximum(200) default(50)
// @Param       offset     query  int     false  "Items to skip"  minimum(0) default(0)
// @Success     200  {object}  handlers.ModerationLogsResponse
// @Router      /moderation/logs [get]
func (h *Handlers) ModerationLogs(c *gin.Context) {
	limit, offset := modWindow(c)
	logs, err := h.moderation.Logs(c.Request.Context(), c.Query("target_id"), limit, offset)
	if err != nil {
		failService(c, err)
		return
	}
	if logs == nil {
		logs = []domain.ModerationLog{}
	}
	ok(c, http.StatusOK, ModerationLogsResponse{Logs: logs})
}
