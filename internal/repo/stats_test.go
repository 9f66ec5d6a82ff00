package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-review-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedReview(t *testing.T, db *gorm.DB, id, subjectID string, overall int, status domain.ReviewStatus, updated time.Time) {
	t.Helper()
	r := &domain.Review{
		ID: id, SubjectType: domain.KindProfessor, SubjectID: subjectID,
		OverallRating: overall, TeachingRating: 3, DifficultyRating: 3, SupportRating: 3,
		Status: status, CreatedAt: updated, UpdatedAt: updated,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed review %s: %v", id, err)
	}
}

func TestSubjectReviewsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := SubjectReviewsStats(context.Background(), db, domain.KindProfessor, "p1")
	if err == nil {
		t.Fatalf("expected error due to missing reviews table")
	}
}

func TestSubjectReviewsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Review{})
	count, maxAt, err := SubjectReviewsStats(context.Background(), db, domain.KindProfessor, "p1")
	if err != nil {
		t.Fatalf("SubjectReviewsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestSubjectReviewsStats_OnlyApproved_AndMax(t *testing.T) {
	db := newTestDB(t, &domain.Review{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max approved for p1
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // pending, ignored

	seedReview(t, db, "r1", "p1", 4, domain.StatusApproved, t1)
	seedReview(t, db, "r2", "p1", 5, domain.StatusApproved, t2)
	seedReview(t, db, "r3", "p1", 1, domain.StatusPending, t3)
	seedReview(t, db, "r4", "p2", 2, domain.StatusApproved, t3)

	count, maxAt, err := SubjectReviewsStats(context.Background(), db, domain.KindProfessor, "p1")
	if err != nil {
		t.Fatalf("SubjectReviewsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("maxUpdatedAt = %v; want %v", maxAt, t2)
	}
}
