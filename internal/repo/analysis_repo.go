// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the content-analysis audit sink and the
// analysis outbox (AnalysisJob) used by the background worker.
//
// Claiming is a conditional UPDATE (pending -> processing) per candidate
// row, so several workers can poll the same table without double-processing
// a job.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// InsertAnalysisRecord stores one analyzer verdict.
func InsertAnalysisRecord(ctx context.Context, db *gorm.DB, rec *domain.ContentAnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(rec).Error
}

// ListAnalysisRecords returns the verdicts recorded for a review, oldest first.
func ListAnalysisRecords(ctx context.Context, db *gorm.DB, reviewID string) ([]domain.ContentAnalysisRecord, error) {
	out := []domain.ContentAnalysisRecord{}
	err := db.WithContext(ctx).Where("review_id = ?", reviewID).Order("created_at ASC").Find(&out).Error
	return out, err
}

// EnqueueAnalysisJob writes a pending job due immediately.
func EnqueueAnalysisJob(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, reviewID string) (*domain.AnalysisJob, error) {
	now := time.Now().UTC()
	j := &domain.AnalysisJob{
		ID:          uuid.NewString(),
		ReviewID:    reviewID,
		SubjectType: kind,
		Status:      domain.JobPending,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// DeleteAnalysisJob removes a job. Used to compensate a failed submission.
func DeleteAnalysisJob(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AnalysisJob{}).Error
}

// ClaimDueJobs claims up to limit pending jobs whose AvailableAt has passed.
// Claimed jobs are returned in processing state with Attempts incremented.
func ClaimDueJobs(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.AnalysisJob, error) {
	var candidates []domain.AnalysisJob
	err := db.WithContext(ctx).
		Where("status = ? AND available_at <= ?", domain.JobPending, now).
		Order("available_at ASC, id ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.AnalysisJob, 0, len(candidates))
	for _, j := range candidates {
		res := db.WithContext(ctx).
			Model(&domain.AnalysisJob{}).
			Where("id = ? AND status = ?", j.ID, domain.JobPending).
			Updates(map[string]any{
				"status":     domain.JobProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue // taken by another worker
		}
		j.Status = domain.JobProcessing
		j.Attempts++
		j.LockedAt = &now
		claimed = append(claimed, j)
	}
	return claimed, nil
}

// CompleteJob marks a job done.
func CompleteJob(ctx context.Context, db *gorm.DB, id string) error {
	return finishJob(ctx, db, id, map[string]any{
		"status":     domain.JobDone,
		"last_error": "",
		"locked_at":  nil,
	})
}

// RetryJob puts a job back to pending, due at availableAt.
func RetryJob(ctx context.Context, db *gorm.DB, id, lastErr string, availableAt time.Time) error {
	return finishJob(ctx, db, id, map[string]any{
		"status":       domain.JobPending,
		"last_error":   lastErr,
		"available_at": availableAt,
		"locked_at":    nil,
	})
}

// FailJob parks a job permanently after its attempts are exhausted.
func FailJob(ctx context.Context, db *gorm.DB, id, lastErr string) error {
	return finishJob(ctx, db, id, map[string]any{
		"status":     domain.JobFailed,
		"last_error": lastErr,
		"locked_at":  nil,
	})
}

func finishJob(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	return db.WithContext(ctx).Model(&domain.AnalysisJob{}).Where("id = ?", id).Updates(fields).Error
}

// RequeueStaleJobs returns processing jobs locked before cutoff to pending.
// A worker that died mid-job leaves exactly such rows behind.
func RequeueStaleJobs(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.AnalysisJob{}).
		Where("status = ? AND locked_at < ?", domain.JobProcessing, cutoff).
		Updates(map[string]any{
			"status":     domain.JobPending,
			"locked_at":  nil,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CountJobs counts jobs in status.
func CountJobs(ctx context.Context, db *gorm.DB, status domain.JobStatus) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AnalysisJob{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
