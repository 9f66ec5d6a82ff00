// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a review is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Soft-deleted reviews are invisible to every read except where noted.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateReview inserts r, assigning an id and UTC timestamps when unset.
func CreateReview(ctx context.Context, db *gorm.DB, r *domain.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	return db.WithContext(ctx).Create(r).Error
}

// GetReview fetches a non-deleted review of kind by id.
func GetReview(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, id string) (*domain.Review, error) {
	var r domain.Review
	err := db.WithContext(ctx).
		Where("id = ? AND subject_type = ?", id, kind).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReviewFields applies a column->value patch to a non-deleted review.
// It returns ErrNotFound when no row matched.
func UpdateReviewFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.Review{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReviewStatus moves a review to status `to`, but only when its current
// status is one of `from` (all statuses when from is empty). The returned
// bool reports whether a row changed.
func SetReviewStatus(ctx context.Context, db *gorm.DB, id string, to domain.ReviewStatus, from ...domain.ReviewStatus) (bool, error) {
	q := db.WithContext(ctx).Model(&domain.Review{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// SoftDeleteReview marks a review deleted; it stays in storage.
func SoftDeleteReview(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Review{}).Error
}

// HardDeleteReview removes the row permanently. Used to compensate a
// failed submission.
func HardDeleteReview(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&domain.Review{}).Error
}

// ReviewIDsForSubject returns ids of all non-deleted reviews of a subject.
func ReviewIDsForSubject(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, subjectID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("subject_type = ? AND subject_id = ?", kind, subjectID).
		Pluck("id", &ids).Error
	return ids, err
}

// ApprovedRatings returns the overall ratings of approved, non-deleted
// reviews of a subject.
func ApprovedRatings(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, subjectID string) ([]int, error) {
	var ratings []int
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("subject_type = ? AND subject_id = ? AND status = ?", kind, subjectID, domain.StatusApproved).
		Pluck("overall_rating", &ratings).Error
	return ratings, err
}

// ListApprovedPage returns approved reviews for a subject, newest first,
// with the total for pagination metadata.
func ListApprovedPage(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, subjectID string, offset, limit int) ([]domain.Review, int64, error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).
			Model(&domain.Review{}).
			Where("subject_type = ? AND subject_id = ? AND status = ?", kind, subjectID, domain.StatusApproved)
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := []domain.Review{}
	err := base().Order("created_at DESC, id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// ListReviewsByIDs returns non-deleted reviews of kind among ids, newest first.
func ListReviewsByIDs(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, ids []string) ([]domain.Review, error) {
	out := []domain.Review{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Where("subject_type = ? AND id IN ?", kind, ids).
		Order("created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

// ListReviewsByStatus returns a page of reviews of kind in the given status.
func ListReviewsByStatus(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, status domain.ReviewStatus, offset, limit int) ([]domain.Review, error) {
	out := []domain.Review{}
	err := db.WithContext(ctx).
		Where("subject_type = ? AND status = ?", kind, status).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountReviews counts non-deleted reviews of kind. When flaggedOnly is set,
// only reviews that are hidden because of an upheld flag are counted.
func CountReviews(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, flaggedOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Review{}).Where("subject_type = ?", kind)
	if flaggedOnly {
		q = q.Where("is_flagged = ? AND status <> ?", true, domain.StatusApproved)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
