package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// newTestDB opens a private in-memory database with the full schema. A single
// connection keeps nested transactions on one SQLite handle.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
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

func seedProfessor(t *testing.T, db *gorm.DB, name string) *domain.Professor {
	t.Helper()
	p := &domain.Professor{Name: name, Department: "Physics"}
	if err := repo.CreateProfessor(context.Background(), db, p); err != nil {
		t.Fatalf("seed professor: %v", err)
	}
	return p
}

func seedCollege(t *testing.T, db *gorm.DB, name string) *domain.College {
	t.Helper()
	c := &domain.College{Name: name, City: "Boston", State: "MA"}
	if err := repo.CreateCollege(context.Background(), db, c); err != nil {
		t.Fatalf("seed college: %v", err)
	}
	return c
}

// seedReview inserts a review and its author mapping directly.
func seedReview(t *testing.T, db *gorm.DB, kind domain.SubjectKind, subjectID, authorID string, overall int, status domain.ReviewStatus) *domain.Review {
	t.Helper()
	ctx := context.Background()
	r := &domain.Review{
		SubjectType: kind, SubjectID: subjectID,
		OverallRating: overall, TeachingRating: 3, DifficultyRating: 3, SupportRating: 3,
		ReviewText: "Clear lectures and helpful feedback on every assignment.",
		Status:     status,
	}
	if err := repo.CreateReview(ctx, db, r); err != nil {
		t.Fatalf("seed review: %v", err)
	}
	if authorID != "" {
		m := &domain.AuthorMapping{ReviewID: r.ID, AuthorID: authorID, SubjectType: kind, SubjectID: subjectID}
		if err := repo.CreateMapping(ctx, db, m); err != nil {
			t.Fatalf("seed mapping: %v", err)
		}
	}
	return r
}

func count(t *testing.T, db *gorm.DB, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func validInput(subjectID string) ReviewInput {
	return ReviewInput{
		SubjectID:        subjectID,
		OverallRating:    4,
		TeachingRating:   5,
		DifficultyRating: 3,
		SupportRating:    4,
		ReviewText:       "Great lectures, fair exams and detailed feedback on assignments.",
		CourseCode:       "PHY101",
		Semester:         "Fall 2024",
		DisplayName:      "anon",
	}
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (f *fakeLimiter) Allow(ctx context.Context, userID, action string, limit int) (bool, error) {
	f.calls++
	return f.allow, f.err
}

func mustGetReview(t *testing.T, db *gorm.DB, kind domain.SubjectKind, id string) *domain.Review {
	t.Helper()
	r, err := repo.GetReview(context.Background(), db, kind, id)
	if err != nil {
		t.Fatalf("get review %s: %v", id, err)
	}
	return r
}
