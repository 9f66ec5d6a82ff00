// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the author-mapping ledger: the side
// table that links a review to its author without exposing the author on
// the public review row.
//
// Reads go through AsCaller so that, on Postgres, row-level security
// policies keyed on request.jwt.claim.sub restrict the caller to their own
// mappings. Every query is additionally filtered by author here.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// AsCaller runs fn inside a transaction scoped to authorID. On Postgres the
// transaction-local setting request.jwt.claim.sub is set to authorID first.
func AsCaller(ctx context.Context, db *gorm.DB, authorID string, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT set_config('request.jwt.claim.sub', ?, true)", authorID).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// CreateMapping records the author of a review. The schema rejects a second
// mapping for the same review or for the same (author, subject).
func CreateMapping(ctx context.Context, db *gorm.DB, m *domain.AuthorMapping) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(m).Error
}

// DeleteMapping removes the mapping of reviewID owned by authorID.
func DeleteMapping(ctx context.Context, db *gorm.DB, reviewID, authorID string) error {
	return db.WithContext(ctx).
		Where("review_id = ? AND author_id = ?", reviewID, authorID).
		Delete(&domain.AuthorMapping{}).Error
}

// MappedReviewIDs returns the review ids authored by authorID for kind.
func MappedReviewIDs(ctx context.Context, db *gorm.DB, authorID string, kind domain.SubjectKind) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.AuthorMapping{}).
		Where("author_id = ? AND subject_type = ?", authorID, kind).
		Order("created_at DESC").
		Pluck("review_id", &ids).Error
	return ids, err
}

// GetMapping returns the mapping for reviewID visible to authorID, or
// ErrNotFound when none exists or it belongs to someone else.
func GetMapping(ctx context.Context, db *gorm.DB, reviewID, authorID string) (*domain.AuthorMapping, error) {
	var m domain.AuthorMapping
	err := db.WithContext(ctx).
		Where("review_id = ? AND author_id = ?", reviewID, authorID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MappedAuthor returns the author of reviewID. It is used by the analysis
// worker, which runs outside any caller identity.
func MappedAuthor(ctx context.Context, db *gorm.DB, reviewID string) (string, error) {
	var m domain.AuthorMapping
	err := db.WithContext(ctx).Select("author_id").Where("review_id = ?", reviewID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	return m.AuthorID, err
}
