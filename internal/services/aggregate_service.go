package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// Aggregator maintains the denormalized average_rating and total_reviews of
// professors and colleges. Every call recomputes from scratch over approved,
// non-deleted reviews, so repeated or concurrent calls converge.
type Aggregator struct {
	DB *gorm.DB
}

// Recompute refreshes the aggregate of one subject. With no approved reviews
// the subject gets 0.0 and 0; otherwise the mean overall rating rounded to
// one decimal. Callers treat failures as non-fatal.
func (a *Aggregator) Recompute(ctx context.Context, kind domain.SubjectKind, subjectID string) error {
	ctx, span := otel.Tracer("services/Aggregator").Start(ctx, "Recompute",
		trace.WithAttributes(
			attribute.String("subject.kind", string(kind)),
			attribute.String("subject.id", subjectID),
		),
	)
	defer span.End()

	ratings, err := repo.ApprovedRatings(ctx, a.DB, kind, subjectID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load ratings: %w", err)
	}
	avg, total := meanRating(ratings)
	span.SetAttributes(attribute.Int("reviews.total", total), attribute.Float64("rating.avg", avg))

	if err := repo.UpdateSubjectAggregate(ctx, a.DB, kind, subjectID, avg, total); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSubjectNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("update aggregate: %w", err)
	}
	return nil
}

// meanRating returns the mean rounded half away from zero to one decimal.
func meanRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}
