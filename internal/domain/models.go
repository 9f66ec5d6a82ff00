// Package domain defines the persistence models for subjects (professors
// and colleges), their reviews, and the privacy-preserving author ledger.
// These types are mapped with GORM and form the core data layer of the
// review platform.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// SubjectKind discriminates the two reviewable entity kinds.
type SubjectKind string

const (
	KindProfessor SubjectKind = "professor"
	KindCollege   SubjectKind = "college"
)

// Valid reports whether k is a known subject kind.
func (k SubjectKind) Valid() bool {
	return k == KindProfessor || k == KindCollege
}

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
	StatusFlagged  ReviewStatus = "flagged"
	StatusRemoved  ReviewStatus = "removed"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged, StatusRemoved:
		return true
	}
	return false
}

// Professor is a reviewable teacher. AverageRating and TotalReviews are a
// denormalized aggregate over approved reviews, always fully recomputed.
type Professor struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Name          string         `json:"name"           gorm:"type:varchar(255);not null;index:idx_professor_name"`
	Department    string         `json:"department"     gorm:"type:varchar(255)"`
	CollegeID     *string        `json:"college_id,omitempty" gorm:"type:char(36);index"`
	AverageRating float64        `json:"average_rating" gorm:"not null;default:0"`
	TotalReviews  int            `json:"total_reviews"  gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Professor.
func (Professor) TableName() string { return "professors" }

// College is a reviewable institution.
type College struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Name          string         `json:"name"           gorm:"type:varchar(255);not null;index:idx_college_name"`
	City          string         `json:"city"           gorm:"type:varchar(128)"`
	State         string         `json:"state"          gorm:"type:varchar(64)"`
	AverageRating float64        `json:"average_rating" gorm:"not null;default:0"`
	TotalReviews  int            `json:"total_reviews"  gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for College.
func (College) TableName() string { return "colleges" }

// Review is an anonymous rating of a subject. Both kinds share this table,
// discriminated by SubjectType. A review never stores its author; the link
// lives only in AuthorMapping.
//
// Fields:
//   - OverallRating..SupportRating: 1..5, enforced by check constraints.
//   - ReviewText: optional free text, at most 2000 characters.
//   - DisplayName: optional pseudonym, professor reviews only.
//   - Status: moderation state (see ReviewStatus).
//   - IsFlagged: set when a moderator upholds a flag.
//   - HelpfulCount / NotHelpfulCount: recomputed from ReviewVote rows.
type Review struct {
	ID               string         `json:"id"                gorm:"type:char(36);primaryKey"`
	SubjectType      SubjectKind    `json:"subject_type"      gorm:"type:varchar(16);not null;index:idx_review_subject,priority:1;check:subject_type IN ('professor','college')"`
	SubjectID        string         `json:"subject_id"        gorm:"type:char(36);not null;index:idx_review_subject,priority:2"`
	OverallRating    int            `json:"overall_rating"    gorm:"not null;check:overall_rating BETWEEN 1 AND 5"`
	TeachingRating   int            `json:"teaching_rating"   gorm:"not null;check:teaching_rating BETWEEN 1 AND 5"`
	DifficultyRating int            `json:"difficulty_rating" gorm:"not null;check:difficulty_rating BETWEEN 1 AND 5"`
	SupportRating    int            `json:"support_rating"    gorm:"not null;check:support_rating BETWEEN 1 AND 5"`
	ReviewText       string         `json:"review_text"       gorm:"type:text"`
	CourseCode       string         `json:"course_code,omitempty"  gorm:"type:varchar(32)"`
	Semester         string         `json:"semester,omitempty"     gorm:"type:varchar(32)"`
	DisplayName      string         `json:"display_name,omitempty" gorm:"type:varchar(64)"`
	Status           ReviewStatus   `json:"status"            gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','approved','rejected','flagged','removed')"`
	IsFlagged        bool           `json:"is_flagged"        gorm:"not null;default:false"`
	HelpfulCount     int            `json:"helpful_count"     gorm:"not null;default:0"`
	NotHelpfulCount  int            `json:"not_helpful_count" gorm:"not null;default:0"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// AuthorMapping links a review to its author outside the public record.
// At most one mapping exists per review, and at most one per
// (author, subject) so concurrent duplicate submissions cannot both land.
type AuthorMapping struct {
	ReviewID    string      `gorm:"type:char(36);primaryKey"`
	AuthorID    string      `gorm:"type:varchar(64);not null;uniqueIndex:ux_mapping_author_subject,priority:1"`
	SubjectType SubjectKind `gorm:"type:varchar(16);not null;uniqueIndex:ux_mapping_author_subject,priority:2"`
	SubjectID   string      `gorm:"type:char(36);not null;uniqueIndex:ux_mapping_author_subject,priority:3"`
	IPAddress   string      `gorm:"type:varchar(64)"`
	UserAgent   string      `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
}

// TableName returns the database table name for AuthorMapping.
func (AuthorMapping) TableName() string { return "review_author_mappings" }

// ReviewVote is a single helpful/not-helpful vote. One per (review, voter).
type ReviewVote struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	ReviewID  string    `json:"review_id" gorm:"type:char(36);not null;uniqueIndex:ux_vote_review_voter,priority:1"`
	VoterID   string    `json:"-"        gorm:"type:varchar(64);not null;uniqueIndex:ux_vote_review_voter,priority:2"`
	Helpful   bool      `json:"helpful"  gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ReviewVote.
func (ReviewVote) TableName() string { return "review_votes" }

// DailyCounter holds per-user, per-action, per-day usage counts.
type DailyCounter struct {
	UserID    string `gorm:"type:varchar(64);primaryKey"`
	Action    string `gorm:"type:varchar(32);primaryKey"`
	Day       string `gorm:"type:char(10);primaryKey"` // YYYY-MM-DD, UTC
	Count     int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName returns the database table name for DailyCounter.
func (DailyCounter) TableName() string { return "daily_counters" }
