// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// SubjectReviewsStats returns aggregate metadata for the public review list
// of a subject: the number of approved reviews and the maximum UpdatedAt
// among them.
//
// When the subject has no approved reviews, the returned count is 0 and
// maxUpdatedAt is nil.
//
// Return values:
//   - count:        approved reviews for the subject
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func SubjectReviewsStats(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, subjectID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("subject_type = ? AND subject_id = ? AND status = ?", kind, subjectID, domain.StatusApproved)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
