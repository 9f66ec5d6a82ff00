// Package services – auto-flagging coordinator
//
// The Coordinator turns a content.Analysis into moderation state: a clean
// verdict approves the review, a flagged verdict records one auto-generated
// Flag per reason and leaves the review pending for a human. Every analysis is
// written to the content_analysis_records audit table whatever the outcome.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/content"
	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/metrics"
	"github.com/tbourn/go-review-backend/internal/notify"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// TextAnalyzer scores review text. *content.Analyzer implements it.
type TextAnalyzer interface {
	Analyze(text string) content.Analysis
}

// Coordinator applies analyzer verdicts to reviews.
type Coordinator struct {
	DB         *gorm.DB
	Analyzer   TextAnalyzer
	Aggregator *Aggregator
	Notifier   notify.Notifier

	// SystemModeratorID is the reporter recorded on auto-generated flags.
	SystemModeratorID string
	// FailOpen treats an analyzer failure as a clean verdict. When false the
	// failure is returned and the job retried.
	FailOpen bool
}

// Outcomes reported in metrics and logs.
const (
	outcomeApproved = "approved"
	outcomeFlagged  = "flagged"
	outcomeSkipped  = "skipped"
)

// Process analyzes text for the review and applies the verdict.
//
// An empty authorID means the author mapping is gone (the review was deleted
// after submission); nothing is written in that case. Status changes only
// apply while the review is still pending, so a moderator decision taken in
// the meantime is never overwritten.
func (c *Coordinator) Process(ctx context.Context, kind domain.SubjectKind, reviewID, text, authorID string) (content.Analysis, error) {
	ctx, span := otel.Tracer("services/Coordinator").Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("review.kind", string(kind)),
			attribute.String("review.id", reviewID),
		),
	)
	defer span.End()
	lg := log.Ctx(ctx).With().Str("review_id", reviewID).Str("kind", string(kind)).Logger()

	if authorID == "" {
		metrics.AnalysisOutcomes.WithLabelValues(string(kind), outcomeSkipped).Inc()
		lg.Info().Msg("review has no author mapping, skipping analysis")
		return content.CleanAnalysis(text), nil
	}

	res, fallback := c.analyze(ctx, text)
	if fallback && !c.FailOpen {
		span.RecordError(ErrAnalysisFailed)
		return res, ErrAnalysisFailed
	}
	span.SetAttributes(attribute.Bool("analysis.auto_flag", res.AutoFlag), attribute.Bool("analysis.fallback", fallback))

	c.audit(ctx, kind, reviewID, res, fallback)
	lg.Info().
		Bool("auto_flag", res.AutoFlag).
		Bool("fallback", fallback).
		Float64("profanity_score", res.ProfanityScore).
		Float64("spam_score", res.SpamScore).
		Float64("quality_score", res.QualityScore).
		Float64("sentiment_score", res.SentimentScore).
		Strs("flag_reasons", res.FlagReasons).
		Msg("content analysis")

	outcome, err := c.apply(ctx, kind, reviewID, res)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	metrics.AnalysisOutcomes.WithLabelValues(string(kind), outcome).Inc()

	switch outcome {
	case outcomeFlagged:
		if c.Notifier != nil {
			if err := c.Notifier.ReviewFlagged(ctx, kind, reviewID, res.FlagReasons); err != nil {
				lg.Warn().Err(err).Msg("moderator notification failed")
			}
		}
	case outcomeApproved:
		if review, err := repo.GetReview(ctx, c.DB, kind, reviewID); err == nil {
			if err := c.Aggregator.Recompute(ctx, kind, review.SubjectID); err != nil {
				lg.Warn().Err(err).Msg("aggregate recompute failed")
			}
		}
	}
	return res, nil
}

// analyze runs the analyzer, converting a panic into the clean fallback.
func (c *Coordinator) analyze(ctx context.Context, text string) (res content.Analysis, fallback bool) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.AnalyzerFallbacks.Inc()
			log.Ctx(ctx).Error().Interface("panic", r).Msg("content analyzer failed, using clean verdict")
			res, fallback = content.CleanAnalysis(text), true
		}
	}()
	if c.Analyzer == nil {
		panic("no analyzer configured")
	}
	return c.Analyzer.Analyze(text), false
}

// apply writes flags or the approval in one transaction. It reports
// outcomeSkipped when the review is gone or no longer pending.
func (c *Coordinator) apply(ctx context.Context, kind domain.SubjectKind, reviewID string, res content.Analysis) (string, error) {
	outcome := outcomeSkipped
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := repo.GetReview(ctx, tx, kind, reviewID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil
			}
			return err
		}
		if review.Status != domain.StatusPending {
			return nil
		}

		if !res.AutoFlag {
			ok, err := repo.SetReviewStatus(ctx, tx, reviewID, domain.StatusApproved, domain.StatusPending)
			if err != nil {
				return err
			}
			if ok {
				outcome = outcomeApproved
			}
			return nil
		}

		for _, reason := range res.FlagReasons {
			f := &domain.Flag{
				ReviewID:      reviewID,
				SubjectType:   kind,
				ReporterID:    c.SystemModeratorID,
				FlagType:      FlagTypeForReason(reason),
				Reason:        reason,
				AutoGenerated: true,
			}
			if err := repo.CreateFlag(ctx, tx, f); err != nil {
				return fmt.Errorf("create auto flag: %w", err)
			}
		}
		outcome = outcomeFlagged
		return nil
	})
	if err != nil {
		return "", err
	}
	if outcome == outcomeFlagged {
		for _, reason := range res.FlagReasons {
			metrics.AutoFlags.WithLabelValues(string(FlagTypeForReason(reason))).Inc()
		}
	}
	return outcome, nil
}

// audit stores the verdict. Failures are logged and ignored.
func (c *Coordinator) audit(ctx context.Context, kind domain.SubjectKind, reviewID string, res content.Analysis, fallback bool) {
	rec := &domain.ContentAnalysisRecord{
		ReviewID:       reviewID,
		SubjectType:    kind,
		IsProfane:      res.IsProfane,
		ProfanityScore: res.ProfanityScore,
		IsSpam:         res.IsSpam,
		SpamScore:      res.SpamScore,
		QualityScore:   res.QualityScore,
		SentimentScore: res.SentimentScore,
		AutoFlag:       res.AutoFlag,
		FlagReasons:    strings.Join(res.FlagReasons, "\n"),
		Fallback:       fallback,
	}
	if err := repo.InsertAnalysisRecord(ctx, c.DB, rec); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("review_id", reviewID).Msg("analysis audit write failed")
	}
}

// FlagTypeForReason maps an analyzer reason to the flag type stored on the
// auto-generated flag.
func FlagTypeForReason(reason string) domain.FlagType {
	switch content.ReasonCategory(reason) {
	case "spam":
		return domain.FlagSpam
	case "quality":
		return domain.FlagLowQuality
	case "sentiment":
		return domain.FlagHarassment
	default:
		return domain.FlagInappropriate
	}
}
