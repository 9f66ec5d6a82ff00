// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for review flags
// and the append-only moderation log.
//
// Duplicate user flags rely on the partial unique index on
// (review_id, reporter_id) and surface as a raw DB error; the service layer
// translates it.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// CreateFlag inserts f with a fresh id and pending status.
func CreateFlag(ctx context.Context, db *gorm.DB, f *domain.Flag) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = domain.FlagPending
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	return db.WithContext(ctx).Create(f).Error
}

// GetFlag fetches a flag of kind by id.
func GetFlag(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, id string) (*domain.Flag, error) {
	var f domain.Flag
	if err := db.WithContext(ctx).Where("id = ? AND subject_type = ?", id, kind).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// HasUserFlag reports whether reporterID already filed a (non-system) flag
// against reviewID.
func HasUserFlag(ctx context.Context, db *gorm.DB, reviewID, reporterID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Flag{}).
		Where("review_id = ? AND reporter_id = ? AND auto_generated = ?", reviewID, reporterID, false).
		Count(&n).Error
	return n > 0, err
}

// ListFlagsPage returns flags of kind, newest first, optionally filtered by
// status (empty means all).
func ListFlagsPage(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, status domain.FlagStatus, offset, limit int) ([]domain.Flag, error) {
	q := db.WithContext(ctx).Where("subject_type = ?", kind)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	out := []domain.Flag{}
	err := q.Order("created_at DESC, id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// FlagsForReviews groups all flags of the given reviews by review id.
func FlagsForReviews(ctx context.Context, db *gorm.DB, reviewIDs []string) (map[string][]domain.Flag, error) {
	out := make(map[string][]domain.Flag, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return out, nil
	}
	var flags []domain.Flag
	if err := db.WithContext(ctx).Where("review_id IN ?", reviewIDs).Order("created_at ASC").Find(&flags).Error; err != nil {
		return nil, err
	}
	for _, f := range flags {
		out[f.ReviewID] = append(out[f.ReviewID], f)
	}
	return out, nil
}

// ResolveFlag transitions a pending flag to status. It reports false when
// the flag was no longer pending, so two concurrent resolutions cannot both
// succeed.
func ResolveFlag(ctx context.Context, db *gorm.DB, id string, status domain.FlagStatus, moderatorID, notes string) (bool, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Flag{}).
		Where("id = ? AND status = ?", id, domain.FlagPending).
		Updates(map[string]any{
			"status":           status,
			"resolved_by":      moderatorID,
			"resolution_notes": notes,
			"resolved_at":      now,
			"updated_at":       now,
		})
	return res.RowsAffected > 0, res.Error
}

// CountFlags counts flags of kind, optionally by status.
func CountFlags(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, status domain.FlagStatus) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Flag{}).Where("subject_type = ?", kind)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// InsertModerationLog appends an audit entry. Entries are never updated or
// deleted.
func InsertModerationLog(ctx context.Context, db *gorm.DB, l *domain.ModerationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(l).Error
}

// ListModerationLogs returns audit entries newest first, optionally limited
// to one target id.
func ListModerationLogs(ctx context.Context, db *gorm.DB, targetID string, offset, limit int) ([]domain.ModerationLog, error) {
	q := db.WithContext(ctx)
	if targetID != "" {
		q = q.Where("target_id = ?", targetID)
	}
	out := []domain.ModerationLog{}
	err := q.Order("created_at DESC, id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
