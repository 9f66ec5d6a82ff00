// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for helpfulness
// votes and the per-day usage counters.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// CreateVote inserts a vote. The (review_id, voter_id) pair must be unique,
// enforced by the schema; the raw DB error is returned on conflict.
func CreateVote(ctx context.Context, db *gorm.DB, reviewID, voterID string, helpful bool) error {
	v := &domain.ReviewVote{
		ID:        uuid.NewString(),
		ReviewID:  reviewID,
		VoterID:   voterID,
		Helpful:   helpful,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(v).Error
}

// VoteCounts tallies helpful and not-helpful votes of a review.
func VoteCounts(ctx context.Context, db *gorm.DB, reviewID string) (helpful, notHelpful int64, err error) {
	q := func() *gorm.DB { return db.WithContext(ctx).Model(&domain.ReviewVote{}).Where("review_id = ?", reviewID) }
	if err = q().Where("helpful = ?", true).Count(&helpful).Error; err != nil {
		return 0, 0, err
	}
	if err = q().Where("helpful = ?", false).Count(&notHelpful).Error; err != nil {
		return 0, 0, err
	}
	return helpful, notHelpful, nil
}

// IncrementDailyCounter adds one to the (userID, action, day) counter and
// returns the new value. The upsert is a single statement on both drivers.
func IncrementDailyCounter(ctx context.Context, db *gorm.DB, userID, action, day string) (int, error) {
	row := &domain.DailyCounter{
		UserID:    userID,
		Action:    action,
		Day:       day,
		Count:     1,
		UpdatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "action"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("daily_counters.count + 1"),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(row).Error
	if err != nil {
		return 0, err
	}

	var cur domain.DailyCounter
	if err := db.WithContext(ctx).
		Where("user_id = ? AND action = ? AND day = ?", userID, action, day).
		First(&cur).Error; err != nil {
		return 0, err
	}
	return cur.Count, nil
}
