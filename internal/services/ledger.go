package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// Ledger answers authorship questions from the review_author_mappings side
// table. Reviews never carry their author; this is the only place the link
// is read. Every query runs as the caller (repo.AsCaller) and is filtered by
// the caller's id, so row-level security on Postgres applies as well.
type Ledger struct {
	DB *gorm.DB
}

// Record links review to authorID. tx must be the handle the review was
// written with when both writes share a transaction.
func (l *Ledger) Record(ctx context.Context, tx *gorm.DB, review *domain.Review, authorID, ip, userAgent string) error {
	return repo.AsCaller(ctx, tx, authorID, func(tx *gorm.DB) error {
		return repo.CreateMapping(ctx, tx, &domain.AuthorMapping{
			ReviewID:    review.ID,
			AuthorID:    authorID,
			SubjectType: review.SubjectType,
			SubjectID:   review.SubjectID,
			IPAddress:   clipRunes(ip, 64),
			UserAgent:   clipRunes(userAgent, 255),
		})
	})
}

// HasActiveReview reports whether authorID owns a non-deleted review of the
// subject.
func (l *Ledger) HasActiveReview(ctx context.Context, authorID string, kind domain.SubjectKind, subjectID string) (bool, error) {
	var found bool
	err := repo.AsCaller(ctx, l.DB, authorID, func(tx *gorm.DB) error {
		mine, err := repo.MappedReviewIDs(ctx, tx, authorID, kind)
		if err != nil || len(mine) == 0 {
			return err
		}
		subject, err := repo.ReviewIDsForSubject(ctx, tx, kind, subjectID)
		if err != nil {
			return err
		}
		found = intersects(mine, subject)
		return nil
	})
	return found, err
}

// IsOwner reports whether authorID wrote reviewID.
func (l *Ledger) IsOwner(ctx context.Context, reviewID, authorID string) (bool, error) {
	if authorID == "" {
		return false, nil
	}
	var owner bool
	err := repo.AsCaller(ctx, l.DB, authorID, func(tx *gorm.DB) error {
		m, err := repo.GetMapping(ctx, tx, reviewID, authorID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		owner = m.AuthorID == authorID
		return nil
	})
	return owner, err
}

// ReviewIDsForAuthor lists the ids of reviews of kind written by authorID,
// newest first.
func (l *Ledger) ReviewIDsForAuthor(ctx context.Context, authorID string, kind domain.SubjectKind) ([]string, error) {
	var ids []string
	err := repo.AsCaller(ctx, l.DB, authorID, func(tx *gorm.DB) error {
		var err error
		ids, err = repo.MappedReviewIDs(ctx, tx, authorID, kind)
		return err
	})
	return ids, err
}

// Forget removes the mapping of a review being deleted by its author.
func (l *Ledger) Forget(ctx context.Context, tx *gorm.DB, reviewID, authorID string) error {
	return repo.AsCaller(ctx, tx, authorID, func(tx *gorm.DB) error {
		return repo.DeleteMapping(ctx, tx, reviewID, authorID)
	})
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
