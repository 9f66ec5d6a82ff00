package domain

import "time"

// FlagType classifies why a review was reported.
type FlagType string

const (
	FlagInappropriate FlagType = "inappropriate"
	FlagSpam          FlagType = "spam"
	FlagLowQuality    FlagType = "low_quality"
	FlagHarassment    FlagType = "harassment"
	FlagFakeReview    FlagType = "fake_review"
	FlagOffTopic      FlagType = "off_topic"
	FlagOther         FlagType = "other"
)

// Valid reports whether t is a known flag type.
func (t FlagType) Valid() bool {
	switch t {
	case FlagInappropriate, FlagSpam, FlagLowQuality, FlagHarassment, FlagFakeReview, FlagOffTopic, FlagOther:
		return true
	}
	return false
}

// FlagStatus is the resolution state of a flag. Only pending flags can be
// resolved; reviewed and dismissed are terminal.
type FlagStatus string

const (
	FlagPending   FlagStatus = "pending"
	FlagReviewed  FlagStatus = "reviewed"
	FlagDismissed FlagStatus = "dismissed"
)

// Flag is a report against a review, either user-submitted or generated by
// the content analyzer. User flags are unique per (review, reporter); the
// partial index leaves auto-generated flags out of that rule.
type Flag struct {
	ID              string      `json:"id"              gorm:"type:char(36);primaryKey"`
	ReviewID        string      `json:"review_id"       gorm:"type:char(36);not null;index;uniqueIndex:ux_flag_review_reporter,priority:1,where:auto_generated = false"`
	SubjectType     SubjectKind `json:"subject_type"    gorm:"type:varchar(16);not null;index"`
	ReporterID      string      `json:"-"               gorm:"type:varchar(64);not null;uniqueIndex:ux_flag_review_reporter,priority:2,where:auto_generated = false"`
	FlagType        FlagType    `json:"flag_type"       gorm:"type:varchar(32);not null"`
	Reason          string      `json:"reason"          gorm:"type:text"`
	Status          FlagStatus  `json:"status"          gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','reviewed','dismissed')"`
	AutoGenerated   bool        `json:"auto_generated"  gorm:"not null;default:false"`
	ResolvedBy      *string     `json:"resolved_by,omitempty"      gorm:"type:varchar(64)"`
	ResolutionNotes string      `json:"resolution_notes,omitempty" gorm:"type:text"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Flag.
func (Flag) TableName() string { return "review_flags" }

// ModerationLog is an append-only audit entry for a moderator action.
type ModerationLog struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ModeratorID string    `json:"moderator_id" gorm:"type:varchar(64);not null;index"`
	Action      string    `json:"action"       gorm:"type:varchar(64);not null"`
	TargetType  string    `json:"target_type"  gorm:"type:varchar(32);not null;index:idx_modlog_target,priority:1"`
	TargetID    string    `json:"target_id"    gorm:"type:char(36);not null;index:idx_modlog_target,priority:2"`
	Reason      string    `json:"reason"       gorm:"type:text"`
	Details     string    `json:"details,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for ModerationLog.
func (ModerationLog) TableName() string { return "moderation_logs" }

// ContentAnalysisRecord is the audit row written for every analyzer run.
// FlagReasons is newline-joined.
type ContentAnalysisRecord struct {
	ID             string      `json:"id"              gorm:"type:char(36);primaryKey"`
	ReviewID       string      `json:"review_id"       gorm:"type:char(36);not null;index"`
	SubjectType    SubjectKind `json:"subject_type"    gorm:"type:varchar(16);not null"`
	IsProfane      bool        `json:"is_profane"`
	ProfanityScore float64     `json:"profanity_score"`
	IsSpam         bool        `json:"is_spam"`
	SpamScore      float64     `json:"spam_score"`
	QualityScore   float64     `json:"quality_score"`
	SentimentScore float64     `json:"sentiment_score"`
	AutoFlag       bool        `json:"auto_flag"`
	FlagReasons    string      `json:"flag_reasons"    gorm:"type:text"`
	Fallback       bool        `json:"fallback"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TableName returns the database table name for ContentAnalysisRecord.
func (ContentAnalysisRecord) TableName() string { return "content_analysis_records" }

// JobStatus is the lifecycle of an outbox job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// AnalysisJob is an outbox row requesting content analysis of a review.
// It is written in the same saga as the review so a crash between the
// HTTP response and the analysis cannot lose it.
type AnalysisJob struct {
	ID          string      `gorm:"type:char(36);primaryKey"`
	ReviewID    string      `gorm:"type:char(36);not null;index"`
	SubjectType SubjectKind `gorm:"type:varchar(16);not null"`
	Status      JobStatus   `gorm:"type:varchar(16);not null;default:'pending';index:idx_job_due,priority:1"`
	Attempts    int         `gorm:"not null;default:0"`
	LastError   string      `gorm:"type:text"`
	AvailableAt time.Time   `gorm:"not null;index:idx_job_due,priority:2"`
	LockedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for AnalysisJob.
func (AnalysisJob) TableName() string { return "analysis_jobs" }
