package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/http/middleware"
	"github.com/tbourn/go-review-backend/internal/repo"
	"github.com/tbourn/go-review-backend/internal/services"
)

const modRole = "moderator"

// testEnv is an engine wired like the production router, over an in-memory
// database and the real services.
type testEnv struct {
	db      *gorm.DB
	engine  *gin.Engine
	reviews *services.ReviewService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	db := newTestDB(t)
	reviews := services.NewReviewService(db, nil, 0)
	h := New(
		reviews,
		&services.FlagService{DB: db},
		services.NewSubjectService(db),
		&services.ModerationService{DB: db, Aggregator: reviews.Aggregator},
	)
	auth := middleware.AuthOptions{DevHeader: true, ModeratorRoles: []string{modRole}}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(auth),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	api := r.Group("/api/v1")
	for _, k := range []struct {
		plural, reviews string
		kind            domain.SubjectKind
	}{
		{"/professors", "/reviews", domain.KindProfessor},
		{"/colleges", "/college-reviews", domain.KindCollege},
	} {
		api.GET(k.plural+"/:id/reviews", WithKind(k.kind), h.ListSubjectReviews)

		g := api.Group(k.reviews, WithKind(k.kind), middleware.RequireUser())
		g.POST("", h.CreateReview)
		g.GET("/mine", h.MyReviews)
		g.GET("/:id", h.GetReview)
		g.PUT("/:id", h.UpdateReview)
		g.DELETE("/:id", h.DeleteReview)
		g.POST("/:id/flag", h.FlagReview)
		g.POST("/:id/vote", h.VoteReview)
	}
	api.GET("/professors", h.ListProfessors)
	api.GET("/professors/:id", h.GetProfessor)
	api.GET("/colleges", h.ListColleges)
	api.GET("/colleges/:id", h.GetCollege)

	mod := api.Group("/moderation", middleware.RequireModerator(auth))
	mod.POST("/professors", h.CreateProfessor)
	mod.POST("/colleges", h.CreateCollege)
	mod.GET("/logs", h.ModerationLogs)
	for _, k := range []struct {
		prefix string
		kind   domain.SubjectKind
	}{{"", domain.KindProfessor}, {"college-", domain.KindCollege}} {
		kg := mod.Group("", WithKind(k.kind))
		kg.GET("/"+k.prefix+"flags", h.ListFlags)
		kg.POST("/"+k.prefix+"flags/:id/resolve", h.ResolveFlag)
		kg.GET("/"+k.prefix+"stats", h.ModerationStats)
		kg.GET("/"+k.prefix+"reviews", h.ListReviewsByStatus)
		kg.POST("/"+k.prefix+"reviews/:id/action", h.ReviewAction)
	}

	return &testEnv{db: db, engine: r, reviews: reviews}
}

// do sends a request as user (anonymous when empty). role may be "" or
// modRole. body is JSON-encoded unless it is already a string.
func (e *testEnv) do(t *testing.T, method, path, user, role string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	expectStatus(t, w, status)
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code=%q want %q (%+v)", er.Code, code, er)
	}
	return er
}

func (e *testEnv) professor(t *testing.T, name string) *domain.Professor {
	t.Helper()
	p := &domain.Professor{Name: name, Department: "History"}
	if err := repo.CreateProfessor(context.Background(), e.db, p); err != nil {
		t.Fatalf("seed professor: %v", err)
	}
	return p
}

func (e *testEnv) college(t *testing.T, name string) *domain.College {
	t.Helper()
	c := &domain.College{Name: name, City: "Austin", State: "TX"}
	if err := repo.CreateCollege(context.Background(), e.db, c); err != nil {
		t.Fatalf("seed college: %v", err)
	}
	return c
}

func reviewBody(subjectID string) map[string]any {
	return map[string]any{
		"subject_id":        subjectID,
		"overall_rating":    4,
		"teaching_rating":   5,
		"difficulty_rating": 3,
		"support_rating":    4,
		"review_text":       "Clear lectures and fair exams.",
		"course_code":       "HIST200",
		"semester":          "Fall 2024",
	}
}

// submit creates a review through the API and returns it.
func (e *testEnv) submit(t *testing.T, prefix, user, subjectID string) domain.Review {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1"+prefix, user, "", reviewBody(subjectID))
	expectStatus(t, w, http.StatusCreated)
	return decode[domain.Review](t, w)
}

// setStatus forces a review into status.
func (e *testEnv) setStatus(t *testing.T, id string, s domain.ReviewStatus) {
	t.Helper()
	if err := repo.UpdateReviewFields(context.Background(), e.db, id, map[string]any{"status": s}); err != nil {
		t.Fatalf("set status: %v", err)
	}
}
