package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&Professor{}, &College{}, &Review{}, &AuthorMapping{},
		&ReviewVote{}, &DailyCounter{}, &Flag{}, &ModerationLog{},
		&ContentAnalysisRecord{}, &AnalysisJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Professor{}).TableName():             "professors",
		(College{}).TableName():               "colleges",
		(Review{}).TableName():                "reviews",
		(AuthorMapping{}).TableName():         "review_author_mappings",
		(ReviewVote{}).TableName():            "review_votes",
		(DailyCounter{}).TableName():          "daily_counters",
		(Flag{}).TableName():                  "review_flags",
		(ModerationLog{}).TableName():         "moderation_logs",
		(ContentAnalysisRecord{}).TableName(): "content_analysis_records",
		(AnalysisJob{}).TableName():           "analysis_jobs",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestEnums_Valid(t *testing.T) {
	if !KindProfessor.Valid() || !KindCollege.Valid() || SubjectKind("school").Valid() {
		t.Fatalf("SubjectKind.Valid mismatch")
	}
	for _, s := range []ReviewStatus{StatusPending, StatusApproved, StatusRejected, StatusFlagged, StatusRemoved} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if ReviewStatus("archived").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
	if !FlagHarassment.Valid() || FlagType("rude").Valid() {
		t.Fatalf("FlagType.Valid mismatch")
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	checks := []struct {
		model any
		index string
	}{
		{&Review{}, "idx_review_subject"},
		{&AuthorMapping{}, "ux_mapping_author_subject"},
		{&ReviewVote{}, "ux_vote_review_voter"},
		{&Flag{}, "ux_flag_review_reporter"},
		{&ModerationLog{}, "idx_modlog_target"},
		{&AnalysisJob{}, "idx_job_due"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func TestReview_RatingCheckConstraints(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	base := func(id string) *Review {
		return &Review{
			ID: id, SubjectType: KindProfessor, SubjectID: "p1",
			OverallRating: 4, TeachingRating: 4, DifficultyRating: 3, SupportRating: 5,
			Status: StatusPending, CreatedAt: now, UpdatedAt: now,
		}
	}

	if err := db.Create(base("ok")).Error; err != nil {
		t.Fatalf("valid review rejected: %v", err)
	}

	low := base("low")
	low.OverallRating = 0
	if err := db.Create(low).Error; err == nil {
		t.Fatalf("expected check violation for overall_rating=0")
	}

	high := base("high")
	high.SupportRating = 6
	if err := db.Create(high).Error; err == nil {
		t.Fatalf("expected check violation for support_rating=6")
	}

	bad := base("status")
	bad.Status = "archived"
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check violation for unknown status")
	}
}

func TestAuthorMapping_UniquePerAuthorAndSubject(t *testing.T) {
	db := newDomainDB(t)

	first := &AuthorMapping{ReviewID: "r1", AuthorID: "u1", SubjectType: KindProfessor, SubjectID: "p1"}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert mapping: %v", err)
	}
	dup := &AuthorMapping{ReviewID: "r2", AuthorID: "u1", SubjectType: KindProfessor, SubjectID: "p1"}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for same author and subject")
	}
	other := &AuthorMapping{ReviewID: "r3", AuthorID: "u1", SubjectType: KindCollege, SubjectID: "p1"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("different subject kind should be allowed: %v", err)
	}
}

func TestFlag_PartialUniqueIndex(t *testing.T) {
	db := newDomainDB(t)
	mk := func(id, reporter string, auto bool) *Flag {
		return &Flag{ID: id, ReviewID: "r1", SubjectType: KindProfessor, ReporterID: reporter,
			FlagType: FlagSpam, Status: FlagPending, AutoGenerated: auto}
	}

	if err := db.Create(mk("f1", "u1", false)).Error; err != nil {
		t.Fatalf("first user flag: %v", err)
	}
	if err := db.Create(mk("f2", "u1", false)).Error; err == nil {
		t.Fatalf("expected unique violation for second user flag")
	}

	// System flags share a reporter and are exempt.
	if err := db.Create(mk("a1", "system", true)).Error; err != nil {
		t.Fatalf("auto flag 1: %v", err)
	}
	if err := db.Create(mk("a2", "system", true)).Error; err != nil {
		t.Fatalf("auto flag 2 should not conflict: %v", err)
	}
}
