package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// MaxFlagReasonRunes caps the description a reporter may attach to a flag.
const MaxFlagReasonRunes = 1000

// FlagService lets signed-in users report reviews.
type FlagService struct {
	DB *gorm.DB
}

// FlagReview records a report of reviewID by reporterID. A reporter can flag
// a review once; the pre-check gives a friendly error and the partial unique
// index on (review_id, reporter_id) catches concurrent duplicates.
func (s *FlagService) FlagReview(ctx context.Context, kind domain.SubjectKind, reviewID, reporterID string, flagType domain.FlagType, description string) (*domain.Flag, error) {
	if !flagType.Valid() {
		return nil, ErrInvalidFlagType
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxFlagReasonRunes {
		return nil, ErrTextTooLong
	}

	if _, err := repo.GetReview(ctx, s.DB, kind, reviewID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	dup, err := repo.HasUserFlag(ctx, s.DB, reviewID, reporterID)
	if err != nil {
		return nil, fmt.Errorf("check flag: %w", err)
	}
	if dup {
		return nil, ErrDuplicateFlag
	}

	f := &domain.Flag{
		ReviewID:    reviewID,
		SubjectType: kind,
		ReporterID:  reporterID,
		FlagType:    flagType,
		Reason:      description,
	}
	if err := repo.CreateFlag(ctx, s.DB, f); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrDuplicateFlag
		}
		return nil, err
	}
	return f, nil
}
