// Subject HTTP handlers.
//
// This file exposes the public catalogue of professors and colleges and the
// moderator-only endpoints that add to it:
//   - GET  /professors, /colleges                 (search + paginate)
//   - GET  /professors/{id}, /colleges/{id}
//   - GET  /professors/{id}/reviews, /colleges/{id}/reviews
//     (approved reviews, weak ETag support)
//   - POST /moderation/professors, /moderation/colleges
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
	"github.com/tbourn/go-review-backend/internal/services"
	"github.com/tbourn/go-review-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

//
// DTOs
//

// CreateProfessorRequest is the JSON payload for adding a professor.
type CreateProfessorRequest struct {
	Name       string `json:"name"       binding:"required,min=1,max=255" example:"Ada Lovelace"`
	Department string `json:"department" binding:"max=255" example:"Computer Science"`
	CollegeID  string `json:"college_id" binding:"omitempty,uuid" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// CreateCollegeRequest is the JSON payload for adding a college.
type CreateCollegeRequest struct {
	Name  string `json:"name"  binding:"required,min=1,max=255" example:"Springfield College"`
	City  string `json:"city"  binding:"max=128" example:"Springfield"`
	State string `json:"state" binding:"max=64" example:"IL"`
}

// ListProfessorsResponse wraps a page of professors.
type ListProfessorsResponse struct {
	Professors []domain.Professor `json:"professors"`
	Pagination Pagination         `json:"pagination"`
}

// ListCollegesResponse wraps a page of colleges.
type ListCollegesResponse struct {
	Colleges   []domain.College `json:"colleges"`
	Pagination Pagination       `json:"pagination"`
}

// ListReviewsResponse wraps a page of approved reviews.
type ListReviewsResponse struct {
	Reviews    []domain.Review `json:"reviews"`
	Pagination Pagination      `json:"pagination"`
}

func pageWindow(c *gin.Context) (int, int) {
	return utils.PageWindow(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

func pagination(page, size int, total int64) Pagination {
	pages := utils.TotalPages(total, size)
	return Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages, HasNext: page < pages}
}

//
// Handlers
//

// ListProfessors godoc
// @ID          listProfessors
// @Summary     List professors
// @Description Returns a page of professors, optionally filtered by a name substring.
// @Tags        Professors
// @Produce     json
// @Param       search     query  string  false  "Name contains"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListProfessorsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /professors [get]
func (h *Handlers) ListProfessors(c *gin.Context) {
	page, size := pageWindow(c)
	items, total, err := h.subjects.ListProfessors(c.Request.Context(), c.Query("search"), page, size)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Professor{}
	}
	ok(c, http.StatusOK, ListProfessorsResponse{Professors: items, Pagination: pagination(page, size, total)})
}

// GetProfessor godoc
// @ID          getProfessor
// @Summary     Get a professor
// @Tags        Professors
// @Produce     json
// @Param       id   path  string  true  "Professor ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Professor
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /professors/{id} [get]
func (h *Handlers) GetProfessor(c *gin.Context) {
	p, err := h.subjects.GetProfessor(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListColleges godoc
// @ID          listColleges
// @Summary     List colleges
// @Description Returns a page of colleges, optionally filtered by a name substring.
// @Tags        Colleges
// @Produce     json
// @Param       search     query  string  false  "Name contains"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListCollegesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /colleges [get]
func (h *Handlers) ListColleges(c *gin.Context) {
	page, size := pageWindow(c)
	items, total, err := h.subjects.ListColleges(c.Request.Context(), c.Query("search"), page, size)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.College{}
	}
	ok(c, http.StatusOK, ListCollegesResponse{Colleges: items, Pagination: pagination(page, size, total)})
}

// GetCollege godoc
// @ID          getCollege
// @Summary     Get a college
// @Tags        Colleges
// @Produce     json
// @Param       id   path  string  true  "College ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.College
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /colleges/{id} [get]
func (h *Handlers) GetCollege(c *gin.Context) {
	col, err := h.subjects.GetCollege(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, col)
}

// ListSubjectReviews godoc
// @ID          listSubjectReviews
// @Summary     List approved reviews of a subject
// @Description Returns a page of approved reviews, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reviews
// @Produce     json
// @Param       id             path    string  true   "Subject ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListReviewsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Subject not found"
// @Router      /professors/{id}/reviews [get]
// @Router      /colleges/{id}/reviews [get]
func (h *Handlers) ListSubjectReviews(c *gin.Context) {
	ctx := c.Request.Context()
	kind := kindOf(c)
	subjectID := c.Param("id")
	page, size := pageWindow(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isSvc := h.reviews.(*services.ReviewService); isSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.SubjectReviewsStats(ctx, db, kind, subjectID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"reviews:%s:%s:%d:%d:%d:%d"`, kind, subjectID, page, size, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.reviews.ListForSubject(ctx, kind, subjectID, page, size)
	if err != nil {
		c.Header("ETag", "")
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Review{}
	}
	ok(c, http.StatusOK, ListReviewsResponse{Reviews: items, Pagination: pagination(page, size, total)})
}

// CreateProfessor godoc
// @ID          createProfessor
// @Summary     Add a professor
// @Description Moderator only. Names are whitespace-normalized and title-cased.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CreateProfessorRequest  true  "Professor"
// @Success     201  {object}  domain.Professor
// @Failure     403  {object}  handlers.ErrorResponse  "Moderator role required"
// @Failure     404  {object}  handlers.ErrorResponse  "College not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /moderation/professors [post]
func (h *Handlers) CreateProfessor(c *gin.Context) {
	var req CreateProfessorRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.subjects.CreateProfessor(c.Request.Context(), services.ProfessorInput{
		Name:       req.Name,
		Department: req.Department,
		CollegeID:  req.CollegeID,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// CreateCollege godoc
// @ID          createCollege
// @Summary     Add a college
// @Description Moderator only.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CreateCollegeRequest  true  "College"
// @Success     201  {object}  domain.College
// @Failure     403  {object}  handlers.ErrorResponse  "Moderator role required"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /moderation/colleges [post]
func (h *Handlers) CreateCollege(c *gin.Context) {
	var req CreateCollegeRequest
	if !bindJSON(c, &req) {
		return
	}
	col, err := h.subjects.CreateCollege(c.Request.Context(), services.CollegeInput{
		Name:  req.Name,
		City:  req.City,
		State: req.State,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, col)
}
